package types

import (
	"encoding/binary"
	"fmt"
)

// A LoadCmd is a Mach-O load command tag. Only the handful of commands the
// segment/section model needs to classify are named here; every other
// command is carried as opaque LoadCmdBytes by the surrounding binary.
type LoadCmd uint32

func (c LoadCmd) Command() LoadCmd { return c }

func (c LoadCmd) Put(b []byte, o binary.ByteOrder) int {
	panic(fmt.Sprintf("Put not implemented for %s", c.String()))
}

const (
	LC_REQ_DYLD LoadCmd = 0x80000000

	LC_SEGMENT    LoadCmd = 0x1  // segment of this file to be mapped
	LC_SYMTAB     LoadCmd = 0x2  // link-edit stab symbol table info
	LC_DYSYMTAB   LoadCmd = 0xb  // dynamic link-edit symbol table info
	LC_LOAD_DYLIB LoadCmd = 0xc  // load dylib command
	LC_UUID       LoadCmd = 0x1b // the uuid
	LC_SEGMENT_64 LoadCmd = 0x19 // 64-bit segment of this file to be mapped

	LC_CODE_SIGNATURE      LoadCmd = 0x1d // local of code signature
	LC_SEGMENT_SPLIT_INFO  LoadCmd = 0x1e // local of info to split segments
	LC_FUNCTION_STARTS     LoadCmd = 0x26 // compressed table of function start addresses
	LC_DATA_IN_CODE        LoadCmd = 0x29 // table of non-instructions in __text
	LC_DYLIB_CODE_SIGN_DRS LoadCmd = 0x2b // Code signing DRs copied from linked dylibs
	LC_DYLD_EXPORTS_TRIE   LoadCmd = (0x33 | LC_REQ_DYLD)
	LC_DYLD_CHAINED_FIXUPS LoadCmd = (0x34 | LC_REQ_DYLD)
)

func (c LoadCmd) String() string {
	switch c {
	case LC_SEGMENT:
		return "LC_SEGMENT"
	case LC_SEGMENT_64:
		return "LC_SEGMENT_64"
	case LC_SYMTAB:
		return "LC_SYMTAB"
	case LC_DYSYMTAB:
		return "LC_DYSYMTAB"
	case LC_LOAD_DYLIB:
		return "LC_LOAD_DYLIB"
	case LC_UUID:
		return "LC_UUID"
	default:
		return fmt.Sprintf("LC_UNKNOWN(%#x)", uint32(c))
	}
}

// IsSegment reports whether c tags a 32 or 64-bit segment load command, the
// only two load commands the model in this package knows how to own.
func (c LoadCmd) IsSegment() bool {
	return c == LC_SEGMENT || c == LC_SEGMENT_64
}

type SegFlag uint32

// Constants for the flags field of the segment_command.
const (
	HighVM            SegFlag = 0x1 // file contents for the high part of the VM space
	FvmLib            SegFlag = 0x2 // VM allocated by a fixed VM library
	NoReLoc           SegFlag = 0x4 // nothing relocated in or to this segment
	ProtectedVersion1 SegFlag = 0x8 // segment pages (beyond the first) are protected
	ReadOnly          SegFlag = 0x10
)

// A Segment32 is the on-disk 32-bit Mach-O segment load command
// (segment_command).
type Segment32 struct {
	LoadCmd         /* LC_SEGMENT */
	Len     uint32  /* includes sizeof section structs */
	Name    [16]byte /* segment name */
	Addr    uint32   /* memory address of this segment */
	Memsz   uint32   /* memory size of this segment */
	Offset  uint32   /* file offset of this segment */
	Filesz  uint32   /* amount to map from the file */
	Maxprot VmProtection /* maximum VM protection */
	Prot    VmProtection /* initial VM protection */
	Nsect   uint32       /* number of sections in segment */
	Flag    SegFlag      /* flags */
}

// A Segment64 is the on-disk 64-bit Mach-O segment load command
// (segment_command_64).
type Segment64 struct {
	LoadCmd         /* LC_SEGMENT_64 */
	Len     uint32  /* includes sizeof section_64 structs */
	Name    [16]byte /* segment name */
	Addr    uint64   /* memory address of this segment */
	Memsz   uint64   /* memory size of this segment */
	Offset  uint64   /* file offset of this segment */
	Filesz  uint64   /* amount to map from the file */
	Maxprot VmProtection /* maximum VM protection */
	Prot    VmProtection /* initial VM protection */
	Nsect   uint32       /* number of sections in segment */
	Flag    SegFlag      /* flags */
}

type SectionFlag uint32

// Constants for the flags field of a section header: the low byte is the
// section type, the rest are attributes.
const (
	SectionTypeMask        SectionFlag = 0x000000ff
	SAttrLocReloc          SectionFlag = 0x00000100
	SAttrExtReloc          SectionFlag = 0x00000200
	SAttrSomeInstructions  SectionFlag = 0x00000400
	SAttrDebug             SectionFlag = 0x02000000
	SAttrSelfModifyingCode SectionFlag = 0x04000000
	SAttrLiveSupport       SectionFlag = 0x08000000
	SAttrNoDeadStrip       SectionFlag = 0x10000000
	SAttrStripStaticSyms   SectionFlag = 0x20000000
	SAttrNoTOC             SectionFlag = 0x40000000
	SAttrPureInstructions  SectionFlag = 0x80000000
)

// A Section32 is the on-disk 32-bit Mach-O section header (section).
type Section32 struct {
	Name      [16]byte
	Seg       [16]byte
	Addr      uint32
	Size      uint32
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     SectionFlag
	Reserved1 uint32
	Reserved2 uint32
}

// A Section64 is the on-disk 64-bit Mach-O section header (section_64).
type Section64 struct {
	Name      [16]byte
	Seg       [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     SectionFlag
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}
