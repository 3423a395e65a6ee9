package macho

import (
	"fmt"

	"github.com/appsworld/go-binparse/types"
)

// SectionHeader holds every scalar field of a Mach-O section (the 64-bit
// section_64 layout is a strict superset of the 32-bit one; this package
// always stores the wider form and drops Reserved3 on 32-bit write-out,
// which is out of scope here anyway).
type SectionHeader struct {
	Name      string
	Addr      uint64
	Size      uint64
	Offset    uint64
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     types.SectionFlag
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

// Section is a named sub-range inside a Segment's payload. A Section exists
// only inside exactly one Segment's Sections list; it is never shared and
// never outlives its segment.
type Section struct {
	SectionHeader

	// segment is a non-owning back-reference to the owning Segment. It is
	// nil for a detached Section (e.g. one not yet passed to AddSection).
	segment *Segment
	// segName caches the owning segment's name as of insertion time, so it
	// stays valid even if the segment is later renamed.
	segName string
}

// NewSection describes a candidate section to insert via
// (*Segment).AddSection. VirtualAddress of 0 means "derive from the
// segment's layout"; any other value is preserved verbatim.
type NewSection struct {
	Name           string
	VirtualAddress uint64
	Content        []byte
	Align          uint32
	Reloff         uint32
	Nreloc         uint32
	Flags          types.SectionFlag
}

// Segment returns the Section's owning segment, or nil if detached.
func (s *Section) Segment() *Segment { return s.segment }

// SegmentName returns the cached name of the owning segment at the time
// this section was inserted.
func (s *Section) SegmentName() string { return s.segName }

// Content returns the section's payload, sliced out of the owning
// segment's Data buffer. It returns nil for a detached section.
func (s *Section) Content() []byte {
	if s.segment == nil {
		return nil
	}
	rel := s.Offset - s.segment.FileOffset
	if rel+s.Size > uint64(len(s.segment.Data)) {
		return nil
	}
	return s.segment.Data[rel : rel+s.Size]
}

// Equal reports whether s and o have identical field content, including
// payload bytes. Two sections from different segments compare equal if
// every field (including the cached segment name, not the segment
// identity) and the payload match.
func (s *Section) Equal(o *Section) bool {
	if s == o {
		return true
	}
	if o == nil {
		return false
	}
	if s.SectionHeader != o.SectionHeader || s.segName != o.segName {
		return false
	}
	sc, oc := s.Content(), o.Content()
	if len(sc) != len(oc) {
		return false
	}
	for i := range sc {
		if sc[i] != oc[i] {
			return false
		}
	}
	return true
}

// clone returns a detached deep copy of s. The caller is responsible for
// rebinding the copy's segment back-reference and segName cache.
func (s *Section) clone() *Section {
	cp := *s
	cp.segment = nil
	return &cp
}

func (s *Section) String() string {
	return fmt.Sprintf("  sec %-16s addr=%#x size=%#x off=%#x flags=%#x", s.Name, s.Addr, s.Size, s.Offset, s.Flags)
}
