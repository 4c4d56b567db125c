package safeloader

// standardFlashLayout is the flash geometry shared by most of the
// registry's TP-Link-style profiles: a U-Boot region, the flash
// partition table itself, a "firmware" region the assembler splits
// dynamically into os-image/file-system (spec.md §4.3 step 1), and a
// trailing support-list region used as the sysupgrade window's end
// marker (spec.md §8 scenario S2).
func standardFlashLayout(firmwareSize uint32) []FlashPartition {
	const (
		uBootBase = 0x00000
		uBootSize = 0x20000
		tableBase = 0x20000
		tableSize = 0x02000
		fwBase    = 0x40000
		slSize    = 0x02000
	)
	fwEnd := uint32(fwBase) + firmwareSize
	return []FlashPartition{
		{Name: "fs-uboot", Base: uBootBase, Size: uBootSize},
		{Name: "partition-table", Base: tableBase, Size: tableSize},
		{Name: "firmware", Base: fwBase, Size: firmwareSize},
		{Name: "support-list", Base: fwEnd, Size: slSize},
	}
}

// standardFlashLayoutWithExtraParaRegion adds a trailing reserved
// flash region for the "extra-para" embedded partition, for boards
// whose on-device flash table actually carves out space for it (see
// DESIGN.md's Archer AX23 open-question decision) in addition to the
// two-byte marker that gets embedded in the image itself.
func standardFlashLayoutWithExtraParaRegion(firmwareSize uint32) []FlashPartition {
	layout := standardFlashLayout(firmwareSize)
	last := layout[len(layout)-1]
	layout = append(layout, FlashPartition{Name: "extra-para", Base: last.End(), Size: 0x100})
	return layout
}

func supportListFor(id string) string {
	return "SupportList:\r\n{product_name:" + id + ",version:1.0,specId:45550000}\r\n"
}

// simpleBoard builds the common case: a TP-Link-style profile with a
// text soft-version, padded meta records, and the standard flash
// layout sized firmwareSize, ending with the os-image/support-list
// sysupgrade window. Used for the registry entries whose sole purpose
// is exercising the extra-para requirement table (spec.md §6).
func simpleBoard(id, banner string, firmwareSize uint32) BoardProfile {
	return BoardProfile{
		ID:                       id,
		VendorBanner:             banner,
		SupportList:              supportListFor(id),
		Padding:                  PadWith(0xFF),
		Version:                  TextVersion("1.0\n"),
		Flash:                    standardFlashLayout(firmwareSize),
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	}
}

// registry is the static, ordered board profile table. Find performs
// a case-insensitive first-match scan over it; it is never mutated
// after package initialization (spec.md §3 invariant).
var registry = []BoardProfile{
	{
		ID:                       "CPE510",
		VendorBanner:             "CPE510(TP-LINK|UN|N300-5):1.0\r\n",
		SupportList:              supportListFor("CPE510"),
		Padding:                  PadWith(0xFF),
		Version:                  TextVersion("1.0\n"),
		Flash:                    standardFlashLayout(0x771000),
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	},
	{
		ID:                       "ARCHER-A7-V5",
		VendorBanner:             "ArcherA7v5(TP-LINK|UN|N300-5):1.0\r\n",
		SupportList:              supportListFor("ARCHER-A7-V5"),
		Padding:                  PadWith(0xFF),
		Version:                  TextVersion("1.0\n"),
		Flash:                    standardFlashLayout(0xBB0000),
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	},
	{
		ID:           "EAP225-OUTDOOR-V1",
		VendorBanner: "",
		SupportList:  supportListFor("EAP225-OUTDOOR-V1"),
		Padding:      NoPadding,
		Version:      NumericVersion{Major: 1, Minor: 0, Patch: 0},
		CompatLevel:  1,
		Flash:        standardFlashLayout(0x6F0000),
		Names: PartitionNames{
			SoftVersion: "soft-version",
		},
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	},
	{
		ID:                       "ARCHER-AX23-V1",
		VendorBanner:             "ArcherAX23v1(TP-LINK|UN|AX1800):1.0\r\n",
		SupportList:              supportListFor("ARCHER-AX23-V1"),
		Padding:                  PadWith(0xFF),
		Version:                  TextVersion("1.0\n"),
		Flash:                    standardFlashLayoutWithExtraParaRegion(0xD80000),
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	},
	{
		ID: "FIXED-LAYOUT-DEMO-V1",
		// No "firmware" region: this profile's os-image/file-system
		// flash entries are fixed, exercising the non-dynamic-split
		// path through Assembler.DerivePartitions.
		VendorBanner: "FixedLayoutDemo(DEMO|UN|TEST):1.0\r\n",
		SupportList:  supportListFor("FIXED-LAYOUT-DEMO-V1"),
		Padding:      PadWith(0xFF),
		Version:      TextVersion("1.0\n"),
		Flash: []FlashPartition{
			{Name: "fs-uboot", Base: 0x00000, Size: 0x20000},
			{Name: "partition-table", Base: 0x20000, Size: 0x02000},
			{Name: "os-image", Base: 0x40000, Size: 0x200000},
			{Name: "file-system", Base: 0x240000, Size: 0x5C0000},
			{Name: "support-list", Base: 0x800000, Size: 0x02000},
		},
		FirstSysupgradePartition: "os-image",
		LastSysupgradePartition:  "support-list",
	},

	simpleBoard("ARCHER-A6-V3", "ArcherA6v3(TP-LINK|UN|AC1200):1.0\r\n", 0x7A0000),
	simpleBoard("ARCHER-A9-V6", "ArcherA9v6(TP-LINK|UN|AC1900):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C2-V3", "ArcherC2v3(TP-LINK|UN|AC750):1.0\r\n", 0x770000),
	simpleBoard("ARCHER-C7-V4", "ArcherC7v4(TP-LINK|UN|AC1750):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C7-V5", "ArcherC7v5(TP-LINK|UN|AC1750):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C25-V1", "ArcherC25v1(TP-LINK|UN|AC900):1.0\r\n", 0x770000),
	simpleBoard("ARCHER-C59-V2", "ArcherC59v2(TP-LINK|UN|AC1350):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C60-V2", "ArcherC60v2(TP-LINK|UN|AC1350):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C60-V3", "ArcherC60v3(TP-LINK|UN|AC1350):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C6U-V1", "ArcherC6Uv1(TP-LINK|UN|AC1200):1.0\r\n", 0x9B0000),
	simpleBoard("ARCHER-C6-V3", "ArcherC6v3(TP-LINK|UN|AC1200):1.0\r\n", 0x9B0000),
	simpleBoard("DECO-M4R-V4", "DecoM4Rv4(TP-LINK|UN|AC1200):1.0\r\n", 0x9B0000),
	simpleBoard("MR70X", "MR70X(TP-LINK|UN|AC1750):1.0\r\n", 0x9B0000),
	simpleBoard("TL-WR1043N-V5", "WR1043Nv5(TP-LINK|UN|N300):1.0\r\n", 0x770000),
	simpleBoard("ARCHER-C6-V2", "ArcherC6v2(TP-LINK|UN|AC1200):1.0\r\n", 0x9B0000),
	simpleBoard("TL-WA1201-V2", "WA1201v2(TP-LINK|UN|AC1200):1.0\r\n", 0x770000),
	simpleBoard("ARCHER-C6-V2-US", "ArcherC6v2US(TP-LINK|US|AC1200):1.0\r\n", 0x9B0000),
	simpleBoard("EAP245-V3", "EAP245v3(TP-LINK|UN|AC1750):1.0\r\n", 0x9B0000),
}
