package safeloader

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time.Parse(%q): %v", s, err)
	}
	return tm
}

func TestMetaFramedRoundTrip(t *testing.T) {
	content := []byte("SupportList:\r\n{product_name:CPE510,version:1.0,specId:45550000}\r\n")
	framed := buildMetaFramed(content, PadWith(0xFF))

	if got := be32(framed[0:4]); got != uint32(len(content)) {
		t.Fatalf("framed length header = %d, want %d", got, len(content))
	}
	if framed[len(framed)-1] != 0xFF {
		t.Fatalf("expected trailing pad byte 0xFF, got %#x", framed[len(framed)-1])
	}

	got, err := parseMetaFramed(framed)
	if err != nil {
		t.Fatalf("parseMetaFramed: %v", err)
	}
	if diff := cmp.Diff(content, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaFramedNoPadding(t *testing.T) {
	content := []byte("v1")
	framed := buildMetaFramed(content, NoPadding)
	if len(framed) != metaFrameHeaderSize+len(content) {
		t.Fatalf("unpadded framed length = %d, want %d", len(framed), metaFrameHeaderSize+len(content))
	}
}

func TestParseMetaFramedTruncatedHeader(t *testing.T) {
	if _, err := parseMetaFramed([]byte{0x00, 0x00}); err == nil {
		t.Fatalf("expected error for truncated meta header")
	}
}

func TestParseMetaFramedTruncatedContent(t *testing.T) {
	buf := make([]byte, metaFrameHeaderSize)
	putBE32(buf[0:4], 100)
	if _, err := parseMetaFramed(buf); err == nil {
		t.Fatalf("expected error when declared length exceeds available bytes")
	}
}

func TestBuildPartitionTableRoundTrip(t *testing.T) {
	flash := standardFlashLayout(0x771000)
	table, err := buildPartitionTable(flash)
	if err != nil {
		t.Fatalf("buildPartitionTable: %v", err)
	}
	if len(table) != partitionTableSize {
		t.Fatalf("partition table size = %d, want %d", len(table), partitionTableSize)
	}

	parsed, err := ParseFlashPartitionTable(table)
	if err != nil {
		t.Fatalf("ParseFlashPartitionTable: %v", err)
	}
	if diff := cmp.Diff(flash, parsed); diff != "" {
		t.Fatalf("flash table round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSoftVersionTextVariant(t *testing.T) {
	got := buildSoftVersion(TextVersion("1.0\n"), 0, 0, SystemClock)
	want := append([]byte("1.0\n"), 0x00)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("text soft-version mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSoftVersionNumericVariantTruncatedWithoutCompatLevel(t *testing.T) {
	clock := FixedClock(mustParseTime(t, "2024-03-05T00:00:00Z"))
	got := buildSoftVersion(NumericVersion{Major: 1, Minor: 2, Patch: 3}, 0, 42, clock)
	if len(got) != numericVersionTruncatedSize {
		t.Fatalf("numeric soft-version length = %d, want %d when compat_level is zero", len(got), numericVersionTruncatedSize)
	}
	if got[0] != 0xFF || got[1] != 1 || got[2] != 2 || got[3] != 3 {
		t.Fatalf("numeric soft-version prefix = % x", got[:4])
	}
	if got[4] != 0x20 || got[5] != 0x24 {
		t.Fatalf("numeric soft-version BCD year = %#x %#x, want 0x20 0x24", got[4], got[5])
	}
	if be32(got[8:12]) != 42 {
		t.Fatalf("numeric soft-version revision = %d, want 42", be32(got[8:12]))
	}
}

func TestBuildSoftVersionNumericVariantFullWithCompatLevel(t *testing.T) {
	clock := FixedClock(mustParseTime(t, "2024-03-05T00:00:00Z"))
	got := buildSoftVersion(NumericVersion{Major: 1}, 1, 0, clock)
	if len(got) != numericVersionFullSize {
		t.Fatalf("numeric soft-version length = %d, want %d when compat_level is non-zero", len(got), numericVersionFullSize)
	}
	if be32(got[12:16]) != 1 {
		t.Fatalf("compat_level field = %d, want 1", be32(got[12:16]))
	}
}

func TestBuildExtraPara(t *testing.T) {
	got := buildExtraPara([2]byte{0x01, 0x00})
	want := []byte{0x01, 0x00}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("extra-para bytes mismatch (-want +got):\n%s", diff)
	}
}
