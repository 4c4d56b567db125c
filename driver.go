package safeloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Info is the human-readable summary an "info" operation prints for
// one parsed container: its dialect, every embedded partition with a
// humanized size, and the decoded soft-version text when present.
type Info struct {
	Dialect      string
	Partitions   []PartitionInfo
	SoftVersion  string
	HasExtraPara bool
}

// PartitionInfo is one line of an Info listing.
type PartitionInfo struct {
	Name       string
	Size       uint32
	HumanSize  string
	Base       uint32
}

// Describe builds an Info summary for an already-parsed image.
func Describe(img *ParsedImage) Info {
	info := Info{Dialect: img.Dialect.String()}
	for _, p := range img.Partitions {
		info.Partitions = append(info.Partitions, PartitionInfo{
			Name:      p.Name,
			Size:      p.Size,
			HumanSize: humanize.Bytes(uint64(p.Size)),
			Base:      p.Base,
		})
		if p.Name == "extra-para" {
			info.HasExtraPara = true
		}
	}

	if raw, ok := img.Payloads["soft-version"]; ok {
		if content, err := parseMetaFramed(raw); err == nil {
			if text, err := DecodeSoftVersion(content); err == nil {
				info.SoftVersion = text
			}
		}
	}

	return info
}

// String renders an Info the way the CLI's "info" verb prints it.
func (info Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dialect: %s\n", info.Dialect)
	if info.SoftVersion != "" {
		fmt.Fprintf(&b, "soft-version: %s\n", info.SoftVersion)
	}
	for _, p := range info.Partitions {
		fmt.Fprintf(&b, "  %-20s base 0x%05x size %-10s (%d bytes)\n", p.Name, p.Base, p.HumanSize, p.Size)
	}
	return b.String()
}

// Extract splits a parsed container into its embedded partitions,
// returning a name-to-content map suitable for a ByteWriter caller to
// write out one file per partition. Every partition is copied
// verbatim, meta framing included, per spec.md §4.5 ("copy its size
// bytes") — the raw bytes of every extracted partition, concatenated
// in table order, reproduce the image's payload region exactly.
// Unwrapping meta framing is Info/DecodeSoftVersion's job, not
// Extract's.
func Extract(img *ParsedImage) (map[string][]byte, error) {
	out := make(map[string][]byte, len(img.Payloads))
	for name, raw := range img.Payloads {
		out[name] = raw
	}
	return out, nil
}

// Convert implements spec.md §4.5's convert operation literally: it
// locates the embedded os-image, file-system, and partition-table
// partitions, parses the flash table out of partition-table, and
// writes os-image at output offset 0, 0xFF padding up to the flash
// gap between the os-image and file-system flash regions, then
// file-system itself. It does not rebuild a new container envelope —
// there is no target board or MD5 step here, only a flash-accurate
// re-layout of the two payloads already in img.
func Convert(img *ParsedImage) ([]byte, error) {
	kernel, ok := img.Payloads["os-image"]
	if !ok {
		return nil, &FormatError{Msg: "source image has no os-image partition to convert"}
	}
	rootfs, ok := img.Payloads["file-system"]
	if !ok {
		return nil, &FormatError{Msg: "source image has no file-system partition to convert"}
	}
	ptRaw, ok := img.Payloads["partition-table"]
	if !ok {
		return nil, &FormatError{Msg: "source image has no partition-table partition to convert"}
	}

	flash, err := ParseFlashPartitionTable(ptRaw)
	if err != nil {
		return nil, err
	}
	osFlash, ok := findFlash(flash, "os-image")
	if !ok {
		return nil, &FormatError{Msg: "flash table has no os-image entry"}
	}
	fsFlash, ok := findFlash(flash, "file-system")
	if !ok {
		return nil, &FormatError{Msg: "flash table has no file-system entry"}
	}
	if fsFlash.Base < osFlash.Base {
		return nil, &FormatError{Msg: "file-system flash region precedes os-image flash region"}
	}

	gap := fsFlash.Base - osFlash.Base
	if uint32(len(kernel)) > gap {
		return nil, &SizeOverflowError{Msg: "os-image payload exceeds its flash gap to file-system"}
	}

	out := make([]byte, int(gap)+len(rootfs))
	copy(out, kernel)
	for i := len(kernel); i < int(gap); i++ {
		out[i] = 0xFF
	}
	copy(out[gap:], rootfs)
	return out, nil
}

// ListBoards returns every registered board id in a stable,
// alphabetically sorted order, for the cli package's supplemented -L
// listing mode (spec.md's SPEC_FULL §9 supplement — AllBoardIDs
// preserves registry order instead).
func ListBoards() []string {
	ids := AllBoardIDs()
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return sorted
}
