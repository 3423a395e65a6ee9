package pe

import (
	"github.com/appsworld/go-binparse/bstream"
)

// imageSectionHeader is IMAGE_SECTION_HEADER, 40 bytes on disk.
type imageSectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// Section is a top-level PE file region. Unlike Mach-O, PE sections are
// not owned by an intermediate segment: the section table sits directly
// under the optional header.
type Section struct {
	Name             string
	VirtualSize      uint32
	VirtualAddress   uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
	Characteristics  uint32

	// Kind is set once a data directory is found to land inside this
	// section (HasKind true); otherwise HasKind is false and Kind keeps its
	// zero value, DirExport.
	// A section can only carry one semantic tag: the last directory
	// dispatched against it wins, matching how a single .rdata section
	// typically backs several directories in practice.
	Kind      DirectoryKind
	HasKind   bool
}

func nameFromRaw8(raw [8]byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw[:])
}

func decodeSectionHeaders(s *bstream.Stream, offset int64, count uint16) ([]Section, error) {
	sections := make([]Section, 0, count)
	for i := uint16(0); i < count; i++ {
		h, err := bstream.Peek[imageSectionHeader](s, offset)
		if err != nil {
			return sections, err
		}
		sections = append(sections, Section{
			Name:             nameFromRaw8(h.Name),
			VirtualSize:      h.VirtualSize,
			VirtualAddress:   h.VirtualAddress,
			SizeOfRawData:    h.SizeOfRawData,
			PointerToRawData: h.PointerToRawData,
			Characteristics:  h.Characteristics,
		})
		offset += 40
	}
	return sections, nil
}

// sectionFromRVA returns the section whose virtual range contains rva.
func sectionFromRVA(sections []Section, rva uint32) (*Section, bool) {
	for i := range sections {
		s := &sections[i]
		size := s.VirtualSize
		if size == 0 {
			size = s.SizeOfRawData
		}
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+size {
			return s, true
		}
	}
	return nil, false
}

// SectionFromOffset returns the unique section whose file range
// [PointerToRawData, PointerToRawData+SizeOfRawData) contains offset.
func SectionFromOffset(sections []Section, offset uint32) (*Section, bool) {
	for i := range sections {
		s := &sections[i]
		if offset >= s.PointerToRawData && offset < s.PointerToRawData+s.SizeOfRawData {
			return s, true
		}
	}
	return nil, false
}

// RVAToOffset maps a relative virtual address to a file offset via the
// section table: rva falls inside some section's virtual range, and the
// file offset is that section's raw-data pointer plus the same delta.
func RVAToOffset(sections []Section, rva uint32) (uint32, bool) {
	sec, ok := sectionFromRVA(sections, rva)
	if !ok {
		return 0, false
	}
	delta := rva - sec.VirtualAddress
	return sec.PointerToRawData + delta, true
}
