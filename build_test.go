package safeloader

import (
	"bytes"
	"crypto/md5"
	"testing"
)

func testMD5(data []byte) [16]byte {
	return md5.Sum(data)
}

func repeat(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestBuildFactoryEnvelopeAndLayout(t *testing.T) {
	profile, ok := Find("CPE510")
	if !ok {
		t.Fatalf("Find(CPE510) failed")
	}
	kernel := repeat(0xAA, 128*1024)
	rootfs := repeat(0xBB, 1024*1024)

	out, err := NewAssembler(profile).BuildFactory(BuildOptions{
		Kernel: kernel,
		Rootfs: rootfs,
		Clock:  SystemClock,
		MD5:    testMD5,
	})
	if err != nil {
		t.Fatalf("BuildFactory: %v", err)
	}

	if got := be32(out[0:4]); got != uint32(len(out)) {
		t.Fatalf("total_size header = %d, want %d", got, len(out))
	}

	bannerLen := be32(out[20:24])
	if bannerLen != uint32(len(profile.VendorBanner)) {
		t.Fatalf("vendor banner length field = %d, want %d", bannerLen, len(profile.VendorBanner))
	}
	gotBanner := string(out[24 : 24+bannerLen])
	if gotBanner != profile.VendorBanner {
		t.Fatalf("vendor banner = %q, want %q", gotBanner, profile.VendorBanner)
	}

	table, err := ParseImagePartitionTable(out[factoryTableOffset:factoryPayloadStart])
	if err != nil {
		t.Fatalf("ParseImagePartitionTable: %v", err)
	}
	wantOrder := []string{"partition-table", "soft-version", "support-list", "os-image", "file-system"}
	if len(table) != len(wantOrder) {
		t.Fatalf("image table has %d entries, want %d: %+v", len(table), len(wantOrder), table)
	}
	for i, name := range wantOrder {
		if table[i].Name != name {
			t.Fatalf("image table entry %d = %q, want %q", i, table[i].Name, name)
		}
	}
	osImage := table[3]
	if osImage.Size != uint32(len(kernel)) {
		t.Fatalf("os-image.size = %d, want %d", osImage.Size, len(kernel))
	}

	hashInput := append(append([]byte{}, md5Salt[:]...), out[20:]...)
	want := testMD5(hashInput)
	if !bytes.Equal(out[4:20], want[:]) {
		t.Fatalf("MD5 envelope does not verify: got % x want % x", out[4:20], want)
	}
}

func TestBuildSysupgradeContainsKernelAtOffsetZero(t *testing.T) {
	profile, ok := Find("CPE510")
	if !ok {
		t.Fatalf("Find(CPE510) failed")
	}
	kernel := repeat(0xAA, 128*1024)
	rootfs := repeat(0xBB, 1024*1024)

	assembler := NewAssembler(profile)
	out, err := assembler.BuildSysupgrade(BuildOptions{
		Kernel: kernel,
		Rootfs: rootfs,
		Clock:  SystemClock,
		MD5:    testMD5,
	})
	if err != nil {
		t.Fatalf("BuildSysupgrade: %v", err)
	}

	if !bytes.Equal(out[:len(kernel)], kernel) {
		t.Fatalf("sysupgrade image does not start with the kernel payload")
	}

	derived, err := assembler.DerivePartitions(len(kernel), false)
	if err != nil {
		t.Fatalf("DerivePartitions: %v", err)
	}
	first, ok := findFlash(derived, profile.FirstSysupgradePartition)
	if !ok {
		t.Fatalf("derived flash table missing %s", profile.FirstSysupgradePartition)
	}
	last, ok := findFlash(derived, profile.LastSysupgradePartition)
	if !ok {
		t.Fatalf("derived flash table missing %s", profile.LastSysupgradePartition)
	}
	slPayload := buildMetaFramed(buildSupportList(profile), profile.Padding)
	wantSize := last.Base - first.Base + uint32(len(slPayload))
	if uint32(len(out)) != wantSize {
		t.Fatalf("sysupgrade image size = %d, want %d", len(out), wantSize)
	}
}

func TestBuildFactoryAppendsExtraParaAfterFileSystem(t *testing.T) {
	profile, ok := Find("ARCHER-A7-V5")
	if !ok {
		t.Fatalf("Find(ARCHER-A7-V5) failed")
	}
	kernel := repeat(0xAA, 64*1024)
	rootfs := repeat(0xBB, 512*1024)

	out, err := NewAssembler(profile).BuildFactory(BuildOptions{
		Kernel: kernel,
		Rootfs: rootfs,
		Clock:  SystemClock,
		MD5:    testMD5,
	})
	if err != nil {
		t.Fatalf("BuildFactory: %v", err)
	}

	table, err := ParseImagePartitionTable(out[factoryTableOffset:factoryPayloadStart])
	if err != nil {
		t.Fatalf("ParseImagePartitionTable: %v", err)
	}
	if len(table) != 6 {
		t.Fatalf("image table has %d rows, want 6: %+v", len(table), table)
	}
	last := table[len(table)-1]
	if last.Name != "extra-para" {
		t.Fatalf("last image table row = %q, want extra-para", last.Name)
	}
	extraRaw := out[factoryTableOffset+int(last.Base) : factoryTableOffset+int(last.Base+last.Size)]
	content, err := parseMetaFramed(extraRaw)
	if err != nil {
		t.Fatalf("parseMetaFramed(extra-para): %v", err)
	}
	if !bytes.Equal(content, []byte{0x01, 0x00}) {
		t.Fatalf("extra-para content = % x, want 01 00", content)
	}
}

func TestBuildFactoryEAP225NoPaddingWithCompatLevel(t *testing.T) {
	profile, ok := Find("EAP225-OUTDOOR-V1")
	if !ok {
		t.Fatalf("Find(EAP225-OUTDOOR-V1) failed")
	}
	kernel := repeat(0xAA, 64*1024)
	rootfs := repeat(0xBB, 512*1024)

	out, err := NewAssembler(profile).BuildFactory(BuildOptions{
		Kernel: kernel,
		Rootfs: rootfs,
		Clock:  SystemClock,
		MD5:    testMD5,
	})
	if err != nil {
		t.Fatalf("BuildFactory: %v", err)
	}

	table, err := ParseImagePartitionTable(out[factoryTableOffset:factoryPayloadStart])
	if err != nil {
		t.Fatalf("ParseImagePartitionTable: %v", err)
	}
	sv := table[1]
	if sv.Name != "soft-version" {
		t.Fatalf("table[1] = %q, want soft-version", sv.Name)
	}
	raw := out[factoryTableOffset+int(sv.Base) : factoryTableOffset+int(sv.Base+sv.Size)]
	if int(sv.Size) != metaFrameHeaderSize+numericVersionFullSize {
		t.Fatalf("soft-version partition size = %d, want %d (no pad byte, full record with compat_level)",
			sv.Size, metaFrameHeaderSize+numericVersionFullSize)
	}
	content, err := parseMetaFramed(raw)
	if err != nil {
		t.Fatalf("parseMetaFramed(soft-version): %v", err)
	}
	if len(content) != numericVersionFullSize {
		t.Fatalf("soft-version content length = %d, want %d", len(content), numericVersionFullSize)
	}
	if be32(content[12:16]) != 1 {
		t.Fatalf("compat_level = %d, want 1", be32(content[12:16]))
	}
}

func TestBuildFactoryKernelLargerThanFirmwareRegionFails(t *testing.T) {
	profile, ok := Find("CPE510")
	if !ok {
		t.Fatalf("Find(CPE510) failed")
	}
	firmware, ok := profile.FindFlash("firmware")
	if !ok {
		t.Fatalf("CPE510 has no firmware flash region")
	}
	kernel := repeat(0xAA, int(firmware.Size)+1)

	_, err := NewAssembler(profile).BuildFactory(BuildOptions{
		Kernel: kernel,
		Rootfs: []byte{0x01},
		Clock:  SystemClock,
		MD5:    testMD5,
	})
	if err == nil {
		t.Fatalf("expected an error when the kernel exceeds the firmware region")
	}
	if _, ok := err.(*SizeOverflowError); !ok {
		t.Fatalf("error type = %T, want *SizeOverflowError", err)
	}
}

func TestApplyJffs2PaddingEndsWithMarker(t *testing.T) {
	rootfs := []byte("hello rootfs")
	padded := applyJffs2Padding(rootfs, nil)
	if !bytes.Equal(padded[len(padded)-4:], []byte{0xDE, 0xAD, 0xC0, 0xDE}) {
		t.Fatalf("jffs2 padding trailer = % x, want de ad c0 de", padded[len(padded)-4:])
	}
	if !bytes.HasPrefix(padded, rootfs) {
		t.Fatalf("jffs2 padding must preserve the original rootfs as its prefix")
	}
}

func TestDerivePartitionsLeavesFixedLayoutUnchanged(t *testing.T) {
	profile, ok := Find("FIXED-LAYOUT-DEMO-V1")
	if !ok {
		t.Fatalf("Find(FIXED-LAYOUT-DEMO-V1) failed")
	}
	derived, err := NewAssembler(profile).DerivePartitions(1024, true)
	if err != nil {
		t.Fatalf("DerivePartitions: %v", err)
	}
	if len(derived) != len(profile.Flash) {
		t.Fatalf("derived flash length = %d, want %d (no firmware region to split)", len(derived), len(profile.Flash))
	}
	for i := range derived {
		if derived[i] != profile.Flash[i] {
			t.Fatalf("entry %d changed: got %+v want %+v", i, derived[i], profile.Flash[i])
		}
	}
}
