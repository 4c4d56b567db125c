package safeloader

import (
	"fmt"
)

// metaFrameHeaderSize is the {u32 content length, u32 zero} header
// shared by soft-version, support-list, and extra-para (spec.md §4.2).
// partition-table is the one record that bypasses this framing.
const metaFrameHeaderSize = 8

// buildMetaFramed wraps content in the common meta-partition framing:
// an 8-byte {length, zero} header, the content itself, and an optional
// single trailing pad byte.
func buildMetaFramed(content []byte, policy PaddingPolicy) []byte {
	size := metaFrameHeaderSize + len(content)
	if policy.Pad {
		size++
	}
	buf := make([]byte, size)
	putBE32(buf[0:4], uint32(len(content)))
	// buf[4:8] is already zero.
	copy(buf[8:], content)
	if policy.Pad {
		buf[size-1] = policy.Value
	}
	return buf
}

// parseMetaFramed extracts the content from a meta-framed record. The
// caller is expected to pass exactly the partition's payload bytes
// (length known from the image/flash partition table entry), so a
// trailing pad byte, if present, is simply left unread.
func parseMetaFramed(data []byte) ([]byte, error) {
	if len(data) < metaFrameHeaderSize {
		return nil, &FormatError{Msg: "truncated meta record header"}
	}
	length := be32(data[0:4])
	end := metaFrameHeaderSize + int(length)
	if end > len(data) {
		return nil, &FormatError{Msg: "truncated meta record content"}
	}
	return data[metaFrameHeaderSize:end], nil
}

const partitionTableSize = 2048

// buildPartitionTable renders the profile's flash partition list as
// the raw 2048-byte "partition-table" payload (spec.md §4.2): a 4-byte
// magic prefix, one ASCII "partition <name> base 0x... size 0x...\n"
// line per flash entry, a NUL terminator, and 0xFF padding to the
// fixed window size. It is NOT run through buildMetaFramed.
func buildPartitionTable(flash []FlashPartition) ([]byte, error) {
	buf := make([]byte, partitionTableSize)
	buf[0], buf[1], buf[2], buf[3] = 0x00, 0x04, 0x00, 0x00
	cursor := 4
	for _, f := range flash {
		line := fmt.Sprintf("partition %s base 0x%05x size 0x%05x\n", f.Name, f.Base, f.Size)
		if cursor+len(line)+1 > partitionTableSize {
			return nil, &SizeOverflowError{Msg: "partition table does not fit in 2048 bytes"}
		}
		copy(buf[cursor:], line)
		cursor += len(line)
	}
	buf[cursor] = 0x00
	cursor++
	for i := cursor; i < partitionTableSize; i++ {
		buf[i] = 0xFF
	}
	return buf, nil
}

// bcd encodes a two-digit decimal value (0..99) as one packed BCD byte.
func bcd(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}

const numericVersionFullSize = 16
const numericVersionTruncatedSize = 12 // offset of the compat_level field

// buildSoftVersion renders the "soft-version" record's content bytes
// (pre-framing) per spec.md §4.2. revision and the profile's compat
// level feed the numeric variant only; clock supplies the build date.
func buildSoftVersion(v SoftwareVersion, compatLevel uint32, revision uint32, clock Clock) []byte {
	switch ver := v.(type) {
	case TextVersion:
		return append([]byte(ver), 0x00)
	case NumericVersion:
		now := clock.Now().UTC()
		buf := make([]byte, numericVersionFullSize)
		buf[0] = 0xFF
		buf[1] = ver.Major
		buf[2] = ver.Minor
		buf[3] = ver.Patch
		buf[4] = bcd(now.Year() / 100)
		buf[5] = bcd(now.Year() % 100)
		buf[6] = bcd(int(now.Month()))
		buf[7] = bcd(now.Day())
		putBE32(buf[8:12], revision)
		if compatLevel == 0 {
			return buf[:numericVersionTruncatedSize]
		}
		putBE32(buf[12:16], compatLevel)
		return buf
	default:
		return nil
	}
}

// buildSupportList renders the "support-list" record's content bytes
// (pre-framing): just the profile's support-list text, no trailing NUL.
func buildSupportList(profile BoardProfile) []byte {
	return []byte(profile.SupportList)
}

// buildExtraPara renders the "extra-para" record's content bytes
// (pre-framing): the profile's two literal marker bytes.
func buildExtraPara(marker [2]byte) []byte {
	return marker[:]
}
