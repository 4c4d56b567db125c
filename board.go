package safeloader

import "strings"

// FlashPartition is a named byte region on the device's NOR flash, as
// listed in the on-device "partition-table" embedded partition.
type FlashPartition struct {
	Name string
	Base uint32
	Size uint32
}

// End returns the first byte past this partition.
func (p FlashPartition) End() uint32 {
	return p.Base + p.Size
}

// SoftwareVersion is the soft-version record's variant. It is either
// free-form text or a packed numeric record; see TextVersion and
// NumericVersion.
type SoftwareVersion interface {
	isSoftwareVersion()
}

// TextVersion is a soft-version record carrying an operator-chosen
// string, NUL-terminated when framed.
type TextVersion string

func (TextVersion) isSoftwareVersion() {}

// NumericVersion is a soft-version record carrying a packed
// major.minor.patch triple; build date, revision, and compat level are
// filled in at build time (see meta.go).
type NumericVersion struct {
	Major, Minor, Patch byte
}

func (NumericVersion) isSoftwareVersion() {}

// PaddingPolicy controls whether a meta-framed record gets a single
// trailing pad byte.
type PaddingPolicy struct {
	Pad   bool
	Value byte
}

// NoPadding is the PaddingPolicy that appends nothing.
var NoPadding = PaddingPolicy{}

// PadWith returns a PaddingPolicy that appends a single byte v.
func PadWith(v byte) PaddingPolicy {
	return PaddingPolicy{Pad: true, Value: v}
}

// PartitionNames holds the five well-known embedded partition names.
// A zero field means "use the default"; see defaultPartitionNames and
// BoardProfile.ResolvedPartitionNames.
type PartitionNames struct {
	PartitionTable string
	SoftVersion    string
	OsImage        string
	SupportList    string
	FileSystem     string
}

var defaultPartitionNames = PartitionNames{
	PartitionTable: "partition-table",
	SoftVersion:    "soft-version",
	OsImage:        "os-image",
	SupportList:    "support-list",
	FileSystem:     "file-system",
}

// BoardProfile parameterises the SafeLoader container dialect for one
// board. The registry (see board_data.go) is a finite, read-only,
// process-lifetime table of these; BoardProfile values themselves are
// never mutated once registered (spec.md §9's "synthetic split
// mutation" design note — see Assembler.DerivePartitions in build.go).
type BoardProfile struct {
	ID string

	VendorBanner string
	SupportList  string
	Padding      PaddingPolicy
	Version      SoftwareVersion
	CompatLevel  uint32

	Flash                    []FlashPartition
	FirstSysupgradePartition string
	LastSysupgradePartition  string

	Names PartitionNames
}

// ResolvedPartitionNames returns the five well-known partition names
// with profile overrides applied over the defaults.
func (p BoardProfile) ResolvedPartitionNames() PartitionNames {
	n := defaultPartitionNames
	if p.Names.PartitionTable != "" {
		n.PartitionTable = p.Names.PartitionTable
	}
	if p.Names.SoftVersion != "" {
		n.SoftVersion = p.Names.SoftVersion
	}
	if p.Names.OsImage != "" {
		n.OsImage = p.Names.OsImage
	}
	if p.Names.SupportList != "" {
		n.SupportList = p.Names.SupportList
	}
	if p.Names.FileSystem != "" {
		n.FileSystem = p.Names.FileSystem
	}
	return n
}

// FindFlash returns the flash partition named name, if present.
func (p BoardProfile) FindFlash(name string) (FlashPartition, bool) {
	for _, f := range p.Flash {
		if f.Name == name {
			return f, true
		}
	}
	return FlashPartition{}, false
}

type extraParaGroup struct {
	marker     [2]byte
	substrings []string
}

// extraParaGroups implements spec.md §6's extra-para requirement
// table. Groups are checked most-specific-first so e.g. "C6-V2-US"
// matches the 01 01 group rather than the 00 01 group's "C6-V2".
var extraParaGroups = []extraParaGroup{
	{marker: [2]byte{0x01, 0x01}, substrings: []string{"C6-V2-US", "EAP245-V3"}},
	{marker: [2]byte{0x00, 0x01}, substrings: []string{"C6-V2", "WA1201-V2"}},
	{marker: [2]byte{0x01, 0x00}, substrings: []string{
		"A6-V3", "A7-V5", "A9-V6", "AX23-V1", "C2-V3", "C7-V4", "C7-V5",
		"C25-V1", "C59-V2", "C60-V2", "C60-V3", "C6U-V1", "C6-V3",
		"M4R-V4", "MR70X", "WR1043N-V5",
	}},
}

// RequiredExtraPara reports whether this board's id matches one of the
// extra-para requirement table's substrings, and if so, the two-byte
// marker to embed.
func (p BoardProfile) RequiredExtraPara() (marker [2]byte, required bool) {
	id := strings.ToUpper(p.ID)
	for _, group := range extraParaGroups {
		for _, sub := range group.substrings {
			if strings.Contains(id, sub) {
				return group.marker, true
			}
		}
	}
	return [2]byte{}, false
}

// Find looks up a board profile by case-insensitive id; the registry
// is scanned in order and the first match wins.
func Find(id string) (BoardProfile, bool) {
	for _, p := range registry {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return BoardProfile{}, false
}

// AllBoardIDs returns every registered board id, registry order
// preserved. Used by the cli package's supplemented -L listing mode.
func AllBoardIDs() []string {
	ids := make([]string, len(registry))
	for i, p := range registry {
		ids[i] = p.ID
	}
	return ids
}
