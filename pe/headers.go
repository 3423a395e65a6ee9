package pe

import (
	"github.com/appsworld/go-binparse/bstream"
)

// Variant selects between the PE32 and PE32+ (PE64) optional header shapes.
// Parse picks it itself from the optional header's Magic field and records
// it in File.Variant; callers do not pass a Variant in.
type Variant int

const (
	PE32 Variant = iota
	PE32Plus
)

const (
	dosHeaderSize    = 64
	optHdrMagicPE32  = 0x10b
	optHdrMagicPE32P = 0x20b

	// NumDataDirectories is the canonical PE data directory count. The
	// format reserves room for more, but every real toolchain emits
	// exactly this many.
	NumDataDirectories = 16
)

// DOSHeader is the IMAGE_DOS_HEADER: legacy MZ header every PE file starts
// with, whose only fields this package uses are the MZ magic and the
// new-header offset.
type DOSHeader struct {
	Magic              uint16
	LastPageBytes      uint16
	PagesInFile        uint16
	Relocations        uint16
	ParagraphsInHeader uint16
	MinExtraParagraphs uint16
	MaxExtraParagraphs uint16
	InitialSS          uint16
	InitialSP          uint16
	Checksum           uint16
	InitialIP          uint16
	InitialCS          uint16
	RelocTableOffset   uint16
	OverlayNumber      uint16
	_                  [4]uint16
	OEMIdentifier      uint16
	OEMInformation     uint16
	_                  [10]uint16
	AddressOfNewEXEHeader uint32
}

const dosMagic = 0x5a4d // "MZ"

// FileHeader is the IMAGE_FILE_HEADER (COFF header) immediately following
// the "PE\0\0" signature.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// DataDirectory is one of the 16 fixed slots following the optional header:
// an RVA/size pair whose meaning is determined by its position in the
// table, not by anything stored in the entry itself.
type DataDirectory struct {
	RVA  uint32
	Size uint32
}

// DirectoryKind names the 16 canonical data directory slots by position.
type DirectoryKind int

const (
	DirExport DirectoryKind = iota
	DirImport
	DirResource
	DirException
	DirCertificate
	DirBaseReloc
	DirDebug
	DirArchitecture
	DirGlobalPtr
	DirTLS
	DirLoadConfig
	DirBoundImport
	DirIAT
	DirDelayImport
	DirCLRHeader
	DirReserved
)

func (k DirectoryKind) String() string {
	names := [...]string{
		"Export", "Import", "Resource", "Exception", "Certificate",
		"BaseReloc", "Debug", "Architecture", "GlobalPtr", "TLS",
		"LoadConfig", "BoundImport", "IAT", "DelayImport", "CLRHeader", "Reserved",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// optionalHeader32 is IMAGE_OPTIONAL_HEADER (PE32). Only the fields this
// package's pipeline needs are named individually; DataDirectory is read
// separately once the optional header's own size is known.
type optionalHeader32 struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
	ImageBase               uint32
	SectionAlignment         uint32
	FileAlignment            uint32
	MajorOperatingSystemVer  uint16
	MinorOperatingSystemVer  uint16
	MajorImageVersion        uint16
	MinorImageVersion        uint16
	MajorSubsystemVersion    uint16
	MinorSubsystemVersion    uint16
	Win32VersionValue        uint32
	SizeOfImage              uint32
	SizeOfHeaders            uint32
	CheckSum                 uint32
	Subsystem                uint16
	DllCharacteristics       uint16
	SizeOfStackReserve       uint32
	SizeOfStackCommit        uint32
	SizeOfHeapReserve        uint32
	SizeOfHeapCommit         uint32
	LoaderFlags              uint32
	NumberOfRvaAndSizes      uint32
}

// optionalHeader64 is IMAGE_OPTIONAL_HEADER64 (PE32+): identical to the
// 32-bit form except ImageBase and the four SizeOf* stack/heap fields widen
// to 64 bits, and BaseOfData is dropped.
type optionalHeader64 struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	ImageBase               uint64
	SectionAlignment        uint32
	FileAlignment           uint32
	MajorOperatingSystemVer uint16
	MinorOperatingSystemVer uint16
	MajorImageVersion       uint16
	MinorImageVersion       uint16
	MajorSubsystemVersion   uint16
	MinorSubsystemVersion   uint16
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint64
	SizeOfStackCommit       uint64
	SizeOfHeapReserve       uint64
	SizeOfHeapCommit        uint64
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
}

// OptionalHeader is the format-neutral view the rest of this package works
// against, after widening whichever on-disk variant was decoded.
type OptionalHeader struct {
	Magic               uint16
	AddressOfEntryPoint uint32
	ImageBase           uint64
	SectionAlignment    uint32
	FileAlignment       uint32
	SizeOfImage         uint32
	SizeOfHeaders       uint32
	NumberOfRvaAndSizes uint32
}

func decodeDOSHeader(s *bstream.Stream) (DOSHeader, error) {
	h, err := bstream.Peek[DOSHeader](s, 0)
	if err != nil {
		return h, err
	}
	if h.Magic != dosMagic {
		return h, &CorruptedInput{Reason: "missing MZ signature"}
	}
	return h, nil
}

const peSignature = 0x00004550 // "PE\0\0"

func decodeFileHeader(s *bstream.Stream, ntHeaderOffset int64) (FileHeader, error) {
	sig, err := bstream.Peek[uint32](s, ntHeaderOffset)
	if err != nil {
		return FileHeader{}, err
	}
	if sig != peSignature {
		return FileHeader{}, &CorruptedInput{Reason: "missing PE signature"}
	}
	return bstream.Peek[FileHeader](s, ntHeaderOffset+4)
}

func decodeOptionalHeader(s *bstream.Stream, offset int64) (OptionalHeader, Variant, error) {
	magic, err := bstream.Peek[uint16](s, offset)
	if err != nil {
		return OptionalHeader{}, PE32, err
	}
	switch magic {
	case optHdrMagicPE32P:
		h, err := bstream.Peek[optionalHeader64](s, offset)
		if err != nil {
			return OptionalHeader{}, PE32Plus, err
		}
		return OptionalHeader{
			Magic:               h.Magic,
			AddressOfEntryPoint: h.AddressOfEntryPoint,
			ImageBase:           h.ImageBase,
			SectionAlignment:    h.SectionAlignment,
			FileAlignment:       h.FileAlignment,
			SizeOfImage:         h.SizeOfImage,
			SizeOfHeaders:       h.SizeOfHeaders,
			NumberOfRvaAndSizes: h.NumberOfRvaAndSizes,
		}, PE32Plus, nil
	default: // treat anything else as PE32; a bad magic is not rejected, only kept in Magic
		h, err := bstream.Peek[optionalHeader32](s, offset)
		if err != nil {
			return OptionalHeader{}, PE32, err
		}
		return OptionalHeader{
			Magic:               h.Magic,
			AddressOfEntryPoint: h.AddressOfEntryPoint,
			ImageBase:           uint64(h.ImageBase),
			SectionAlignment:    h.SectionAlignment,
			FileAlignment:       h.FileAlignment,
			SizeOfImage:         h.SizeOfImage,
			SizeOfHeaders:       h.SizeOfHeaders,
			NumberOfRvaAndSizes: h.NumberOfRvaAndSizes,
		}, PE32, nil
	}
}

func optionalHeaderSize(v Variant) int64 {
	if v == PE32Plus {
		return 112
	}
	return 96
}
