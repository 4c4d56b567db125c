package safeloader

import "fmt"

// ParsedPartition is a decoded entry from either the image partition
// table or the flash partition table.
type ParsedPartition struct {
	Name string
	Base uint32
	Size uint32
}

// maxPartitionNameLen is the longest partition name the table walker
// accepts; a longer name is rejected with a FormatError rather than
// truncated.
const maxPartitionNameLen = 31

// tableWalker holds the two string fragments that differ between the
// image partition table ("fwup-ptn ... \t\r\n") and the flash
// partition table ("partition ... \n") — everything else about
// walking a fixed, NUL/0xFF-terminated window of ASCII lines is
// shared.
type tableWalker struct {
	keyword    string // "fwup-ptn" or "partition"
	terminator string // "\t\r\n" or "\n"
}

var imageTableWalker = tableWalker{keyword: "fwup-ptn", terminator: "\t\r\n"}
var flashTableWalker = tableWalker{keyword: "partition", terminator: "\n"}

// walk scans window for consecutive "<keyword> <name> base 0x<hex>
// size 0x<hex><terminator>" lines, stopping at a 0x00 byte, the end of
// window, or the first line that does not start with the keyword. A
// keyword line with no terminator, a malformed body, or an over-long
// name is a FormatError.
func (w tableWalker) walk(window []byte) ([]ParsedPartition, error) {
	var out []ParsedPartition
	cursor := 0
	prefix := w.keyword + " "
	for cursor < len(window) && window[cursor] != 0x00 {
		rest := window[cursor:]
		if len(rest) < len(prefix) || string(rest[:len(prefix)]) != prefix {
			break
		}
		rest = rest[len(prefix):]

		termIdx := indexOf(rest, w.terminator)
		if termIdx < 0 {
			return nil, &FormatError{Msg: fmt.Sprintf("%s entry missing terminator", w.keyword)}
		}
		line := string(rest[:termIdx])

		var name string
		var base, size uint32
		n, err := fmt.Sscanf(line, "%s base 0x%x size 0x%x", &name, &base, &size)
		if err != nil || n != 3 {
			return nil, &FormatError{Msg: fmt.Sprintf("malformed %s entry %q", w.keyword, line)}
		}
		if len(name) > maxPartitionNameLen {
			return nil, &FormatError{Msg: fmt.Sprintf("partition name %q exceeds %d bytes", name, maxPartitionNameLen)}
		}

		out = append(out, ParsedPartition{Name: name, Base: base, Size: size})
		cursor += len(prefix) + termIdx + len(w.terminator)
	}
	return out, nil
}

func indexOf(b []byte, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(b); i++ {
		if string(b[i:i+n]) == sub {
			return i
		}
	}
	return -1
}

// ParseImagePartitionTable decodes a factory image's 2048-byte image
// partition table, located at dialect.PayloadOffset() in the full
// image (spec.md §4.4). Base fields inside the table are themselves
// offsets from PayloadOffset(), not from the start of the file.
func ParseImagePartitionTable(window []byte) ([]ParsedPartition, error) {
	if len(window) != partitionTableSize {
		return nil, &FormatError{Msg: fmt.Sprintf("image partition table window must be %d bytes", partitionTableSize)}
	}
	return imageTableWalker.walk(window)
}

// flashTableMagic is the 4-byte prefix preceding the ASCII partition
// lines inside the embedded "partition-table" partition's payload.
var flashTableMagic = [4]byte{0x00, 0x04, 0x00, 0x00}

// ParseFlashPartitionTable decodes the embedded "partition-table"
// partition's raw payload into the device's on-flash layout (spec.md
// §4.4). payload must be exactly the partition-table partition's
// bytes, magic prefix included.
func ParseFlashPartitionTable(payload []byte) ([]FlashPartition, error) {
	if len(payload) < len(flashTableMagic) {
		return nil, &FormatError{Msg: "flash partition table shorter than its magic prefix"}
	}
	for i, b := range flashTableMagic {
		if payload[i] != b {
			return nil, &FormatError{Msg: "flash partition table magic mismatch"}
		}
	}
	parsed, err := flashTableWalker.walk(payload[len(flashTableMagic):])
	if err != nil {
		return nil, err
	}
	out := make([]FlashPartition, len(parsed))
	for i, p := range parsed {
		out[i] = FlashPartition{Name: p.Name, Base: p.Base, Size: p.Size}
	}
	return out, nil
}

// ParsedImage is a fully decoded SafeLoader container: its dialect,
// its image partition table, and the extracted payload bytes for each
// entry.
type ParsedImage struct {
	Dialect    ContainerDialect
	Partitions []ParsedPartition
	Payloads   map[string][]byte
}

// ParseImage classifies data's dialect, decodes its image partition
// table, and slices out every listed partition's payload (spec.md
// §4.4). The table itself starts at dialect.PayloadOffset(); each
// entry's base is relative to that same offset, so a payload's
// absolute position in data is tableStart+base.
func ParseImage(data []byte) (*ParsedImage, error) {
	const headerWindowStart = 0x14
	if len(data) < headerWindowStart {
		return nil, &FormatError{Msg: "image too short for its dialect header window"}
	}
	dialect := ClassifyDialect(data[headerWindowStart:])
	tableStart := dialect.PayloadOffset()
	if tableStart < 0 || tableStart+partitionTableSize > len(data) {
		return nil, &FormatError{Msg: "image too short for its dialect's partition table window"}
	}

	parts, err := ParseImagePartitionTable(data[tableStart : tableStart+partitionTableSize])
	if err != nil {
		return nil, err
	}

	payloads := make(map[string][]byte, len(parts))
	for _, p := range parts {
		start := tableStart + int(p.Base)
		end := start + int(p.Size)
		if start < tableStart || end > len(data) || end < start {
			return nil, &SizeOverflowError{Msg: fmt.Sprintf("partition %s [%d:%d] out of bounds", p.Name, start, end)}
		}
		payloads[p.Name] = data[start:end]
	}

	return &ParsedImage{Dialect: dialect, Partitions: parts, Payloads: payloads}, nil
}

// DecodeSoftVersion parses a "soft-version" partition's raw payload
// (already stripped of meta-framing) back into human-readable text: a
// TextVersion's content as-is, or a NumericVersion record's
// major.minor.patch plus build date, rendered the way the CLI's info
// operation displays it.
func DecodeSoftVersion(content []byte) (string, error) {
	if len(content) == 0 {
		return "", &FormatError{Msg: "empty soft-version content"}
	}
	if content[0] != 0xFF {
		s := string(content)
		for len(s) > 0 && s[len(s)-1] == 0x00 {
			s = s[:len(s)-1]
		}
		return s, nil
	}
	if len(content) < numericVersionTruncatedSize {
		return "", &FormatError{Msg: "truncated numeric soft-version record"}
	}
	major, minor, patch := content[1], content[2], content[3]
	year := int(unbcd(content[4]))*100 + int(unbcd(content[5]))
	month := unbcd(content[6])
	day := unbcd(content[7])
	revision := be32(content[8:12])
	return fmt.Sprintf("%d.%d.%d build %04d-%02d-%02d rev %d", major, minor, patch, year, month, day, revision), nil
}

func unbcd(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
