package safeloader

import "fmt"

// ImagePartition is a named byte region embedded in a SafeLoader
// container, as listed in its image partition table.
type ImagePartition struct {
	Name    string
	Payload []byte
}

// BuildOptions carries every build-time input to the assembler: the
// kernel and root-filesystem bytes, the jffs2 EOF-marker flag, the
// revision to embed in a numeric soft-version record, and the
// collaborators (spec.md §9: no module-level clock or MD5 global —
// both are threaded in explicitly here).
type BuildOptions struct {
	Kernel   []byte
	Rootfs   []byte
	Jffs2EOF bool
	Revision uint32
	Clock    Clock
	MD5      MD5Func
}

// Assembler builds factory and sysupgrade images for one board
// profile. It never mutates the profile: DerivePartitions always
// returns a fresh slice (spec.md §9 "synthetic split mutation" design
// note), so the same profile can drive multiple builds safely.
type Assembler struct {
	Profile BoardProfile
}

// NewAssembler returns an Assembler for profile.
func NewAssembler(profile BoardProfile) Assembler {
	return Assembler{Profile: profile}
}

const sixtyFourKiB = 64 * 1024

// DerivePartitions returns the profile's flash partition list with
// os-image/file-system synthesized inside its "firmware" region (if
// any), per spec.md §4.3 step 1. alignFileSystem should be true for
// factory builds (file-system.base rounds up to a 64 KiB boundary) and
// false for sysupgrade builds. Profiles with no "firmware" partition
// are returned unchanged — their os-image/file-system regions are
// already fixed in the flash table.
func (a Assembler) DerivePartitions(kernelLen int, alignFileSystem bool) ([]FlashPartition, error) {
	src := a.Profile.Flash
	idx := -1
	for i, f := range src {
		if f.Name == "firmware" {
			idx = i
			break
		}
	}
	if idx < 0 {
		out := make([]FlashPartition, len(src))
		copy(out, src)
		return out, nil
	}

	firmware := src[idx]
	if uint32(kernelLen) > firmware.Size {
		return nil, &SizeOverflowError{Msg: fmt.Sprintf(
			"kernel size %d exceeds firmware region size %d", kernelLen, firmware.Size)}
	}

	osImage := FlashPartition{Name: "os-image", Base: firmware.Base, Size: uint32(kernelLen)}
	fsBase := firmware.Base + uint32(kernelLen)
	if alignFileSystem {
		fsBase = uint32(alignTo(uint64(fsBase), sixtyFourKiB))
	}
	fileSystem := FlashPartition{
		Name: "file-system",
		Base: fsBase,
		Size: firmware.Base + firmware.Size - fsBase,
	}

	out := make([]FlashPartition, 0, len(src)+1)
	out = append(out, src[:idx]...)
	out = append(out, osImage, fileSystem)
	out = append(out, src[idx+1:]...)
	return out, nil
}

// applyJffs2Padding extends rootfs per spec.md §4.3 step 2: pad with
// 0xFF up to the next 64 KiB boundary (measured from the matching
// flash partition's base when known, or from zero otherwise), plus 4
// bytes, then stamp the trailing 4 bytes with the jffs2 EOF marker.
func applyJffs2Padding(rootfs []byte, fsFlash *FlashPartition) []byte {
	var target uint64
	if fsFlash != nil {
		target = alignTo(uint64(len(rootfs))+uint64(fsFlash.Base), sixtyFourKiB) + 4 - uint64(fsFlash.Base)
	} else {
		target = alignTo(uint64(len(rootfs)), sixtyFourKiB) + 4
	}
	buf := make([]byte, target)
	copy(buf, rootfs)
	for i := len(rootfs); i < len(buf)-4; i++ {
		buf[i] = 0xFF
	}
	copy(buf[len(buf)-4:], []byte{0xDE, 0xAD, 0xC0, 0xDE})
	return buf
}

func findFlash(flash []FlashPartition, name string) (FlashPartition, bool) {
	for _, f := range flash {
		if f.Name == name {
			return f, true
		}
	}
	return FlashPartition{}, false
}

func indexOfFlash(flash []FlashPartition, name string) int {
	for i, f := range flash {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func findPart(parts []ImagePartition, name string) (ImagePartition, bool) {
	for _, p := range parts {
		if p.Name == name {
			return p, true
		}
	}
	return ImagePartition{}, false
}

// buildPartitions materialises every embedded partition in build
// order (spec.md §4.3 step 3: partition-table, soft-version,
// support-list, os-image, file-system, then extra-para if required)
// together with the derived flash layout those partitions describe.
func (a Assembler) buildPartitions(opts BuildOptions, alignFileSystem bool) ([]ImagePartition, []FlashPartition, error) {
	derived, err := a.DerivePartitions(len(opts.Kernel), alignFileSystem)
	if err != nil {
		return nil, nil, err
	}

	names := a.Profile.ResolvedPartitionNames()

	ptBytes, err := buildPartitionTable(derived)
	if err != nil {
		return nil, nil, err
	}

	svContent := buildSoftVersion(a.Profile.Version, a.Profile.CompatLevel, opts.Revision, opts.Clock)
	svBytes := buildMetaFramed(svContent, a.Profile.Padding)
	slBytes := buildMetaFramed(buildSupportList(a.Profile), a.Profile.Padding)

	rootfs := opts.Rootfs
	if opts.Jffs2EOF {
		var fsFlash *FlashPartition
		if fs, ok := findFlash(derived, "file-system"); ok {
			fsFlash = &fs
		}
		rootfs = applyJffs2Padding(rootfs, fsFlash)
	}

	parts := []ImagePartition{
		{Name: names.PartitionTable, Payload: ptBytes},
		{Name: names.SoftVersion, Payload: svBytes},
		{Name: names.SupportList, Payload: slBytes},
		{Name: names.OsImage, Payload: opts.Kernel},
		{Name: names.FileSystem, Payload: rootfs},
	}
	if marker, required := a.Profile.RequiredExtraPara(); required {
		parts = append(parts, ImagePartition{
			Name:    "extra-para",
			Payload: buildMetaFramed(buildExtraPara(marker), a.Profile.Padding),
		})
	}
	return parts, derived, nil
}

const (
	factoryPreambleSize = 20
	factoryHeaderSize   = 4096
	factoryTableOffset  = factoryPreambleSize + factoryHeaderSize // 0x1014
	factoryPayloadStart = factoryTableOffset + partitionTableSize // 0x1814
)

// md5Salt is prepended to bytes[20:total_size] before hashing into the
// factory image's MD5 envelope (spec.md §6).
var md5Salt = [16]byte{
	0x7A, 0x2B, 0x15, 0xED, 0x9B, 0x98, 0x59, 0x6D,
	0xE5, 0x04, 0xAB, 0x44, 0xAC, 0x2A, 0x9F, 0x4E,
}

// buildImagePartitionTable renders the 2048-byte image partition
// table: one "fwup-ptn <name> base 0x... size 0x...\t\r\n" line per
// payload, bases running from 0x800, a terminating NUL, 0xFF padding.
func buildImagePartitionTable(parts []ImagePartition) ([]byte, error) {
	table := make([]byte, partitionTableSize)
	cursor := 0
	base := uint32(0x800)
	for _, p := range parts {
		line := fmt.Sprintf("fwup-ptn %s base 0x%05x size 0x%05x\t\r\n", p.Name, base, len(p.Payload))
		if cursor+len(line)+1 > partitionTableSize {
			return nil, &SizeOverflowError{Msg: "image partition table does not fit in 2048 bytes"}
		}
		copy(table[cursor:], line)
		cursor += len(line)
		base += uint32(len(p.Payload))
	}
	table[cursor] = 0x00
	cursor++
	for i := cursor; i < partitionTableSize; i++ {
		table[i] = 0xFF
	}
	return table, nil
}

// BuildFactory assembles a full SafeLoader factory image: preamble,
// MD5 envelope, vendor banner, image partition table, and concatenated
// payloads (spec.md §4.3 "Factory emit").
func (a Assembler) BuildFactory(opts BuildOptions) ([]byte, error) {
	parts, _, err := a.buildPartitions(opts, true)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p.Payload)
	}
	length := factoryPayloadStart + total

	out := make([]byte, length)
	putBE32(out[0:4], uint32(length))

	putBE32(out[20:24], uint32(len(a.Profile.VendorBanner)))
	for i := 24; i < factoryTableOffset; i++ {
		out[i] = 0xFF
	}
	copy(out[24:factoryTableOffset], a.Profile.VendorBanner)

	table, err := buildImagePartitionTable(parts)
	if err != nil {
		return nil, err
	}
	copy(out[factoryTableOffset:factoryPayloadStart], table)

	cursor := factoryPayloadStart
	for _, p := range parts {
		copy(out[cursor:], p.Payload)
		cursor += len(p.Payload)
	}

	hashInput := make([]byte, 0, len(md5Salt)+length-20)
	hashInput = append(hashInput, md5Salt[:]...)
	hashInput = append(hashInput, out[20:]...)
	digest := opts.MD5(hashInput)
	copy(out[4:20], digest[:])

	return out, nil
}

// BuildSysupgrade assembles a sysupgrade image: a contiguous slice of
// flash between the profile's first and last sysupgrade partitions,
// with each embedded payload placed at its flash partition's absolute
// offset relative to the window's start (spec.md §4.3 "Sysupgrade
// emit").
func (a Assembler) BuildSysupgrade(opts BuildOptions) ([]byte, error) {
	parts, derived, err := a.buildPartitions(opts, false)
	if err != nil {
		return nil, err
	}

	firstIdx := indexOfFlash(derived, a.Profile.FirstSysupgradePartition)
	lastIdx := indexOfFlash(derived, a.Profile.LastSysupgradePartition)
	if firstIdx < 0 {
		return nil, &FormatError{Msg: "first sysupgrade partition " + a.Profile.FirstSysupgradePartition + " not found in flash table"}
	}
	if lastIdx < 0 {
		return nil, &FormatError{Msg: "last sysupgrade partition " + a.Profile.LastSysupgradePartition + " not found in flash table"}
	}
	if firstIdx >= lastIdx {
		return nil, &FormatError{Msg: "first sysupgrade partition must precede last sysupgrade partition"}
	}

	first := derived[firstIdx]
	last := derived[lastIdx]
	lastPayload, ok := findPart(parts, last.Name)
	if !ok {
		return nil, &FormatError{Msg: "no embedded payload for last sysupgrade partition " + last.Name}
	}

	size := last.Base - first.Base + uint32(len(lastPayload.Payload))
	out := make([]byte, size)
	for i := range out {
		out[i] = 0xFF
	}

	for i := firstIdx; i <= lastIdx; i++ {
		fp := derived[i]
		payload, ok := findPart(parts, fp.Name)
		if !ok {
			continue
		}
		if uint32(len(payload.Payload)) > fp.Size {
			return nil, &SizeOverflowError{Msg: "payload for " + fp.Name + " exceeds its flash partition"}
		}
		offset := fp.Base - first.Base
		copy(out[offset:], payload.Payload)
	}

	return out, nil
}
