package macho

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/appsworld/go-binparse/types"
)

// Segment is a Load Command specialization owning an ordered list of
// Sections. It is the mutable core of this package: AddSection appends a
// section while keeping FileSize, the section's Offset/Addr, and Data in
// sync; Clone deep-copies the whole graph; Equal compares two segments
// structurally.
type Segment struct {
	Cmd types.LoadCmd // LC_SEGMENT or LC_SEGMENT_64

	Name                string
	VirtualAddress      uint64
	VirtualSize         uint64
	FileOffset          uint64
	FileSize            uint64
	MaxProtection       types.VmProtection
	InitProtection      types.VmProtection
	Flags               types.SegFlag
	NumSectionsDeclared uint32 // on-disk declared section count; AddSection never updates it, RemoveAllSections resets it to 0

	// Data is the segment's contiguous payload buffer. NewSegment and
	// AddSection leave it exactly FileSize bytes long; a segment built from
	// a decoded header starts with empty Data until the surrounding parser
	// fills it.
	Data []byte

	sections    []*Section
	relocations relocationSet
}

func normalizeName(raw string) string {
	if i := strings.IndexByte(raw, 0); i >= 0 {
		return raw[:i]
	}
	return raw
}

// NewSegment constructs an empty, user-built segment: no sections, no
// relocations, and content either empty or set verbatim from data. The
// load command tag defaults to LC_SEGMENT_64; callers targeting a 32-bit
// file can override Cmd after construction.
func NewSegment(name string, data []byte) *Segment {
	return &Segment{
		Cmd:      types.LC_SEGMENT_64,
		Name:     normalizeName(name),
		FileSize: uint64(len(data)),
		Data:     append([]byte(nil), data...),
	}
}

// NewSegmentFromHeader32 builds a Segment from a decoded segment_command
// record. Its section list starts empty and Data starts empty; both are
// filled in later by the surrounding binary parser.
func NewSegmentFromHeader32(h types.Segment32) *Segment {
	return &Segment{
		Cmd:                 types.LC_SEGMENT,
		Name:                normalizeName(string(h.Name[:])),
		VirtualAddress:      uint64(h.Addr),
		VirtualSize:         uint64(h.Memsz),
		FileOffset:          uint64(h.Offset),
		FileSize:            uint64(h.Filesz),
		MaxProtection:       h.Maxprot,
		InitProtection:      h.Prot,
		Flags:               h.Flag,
		NumSectionsDeclared: h.Nsect,
	}
}

// NewSegmentFromHeader64 is the 64-bit counterpart of NewSegmentFromHeader32.
func NewSegmentFromHeader64(h types.Segment64) *Segment {
	return &Segment{
		Cmd:                 types.LC_SEGMENT_64,
		Name:                normalizeName(string(h.Name[:])),
		VirtualAddress:      h.Addr,
		VirtualSize:         h.Memsz,
		FileOffset:          h.Offset,
		FileSize:            h.Filesz,
		MaxProtection:       h.Maxprot,
		InitProtection:      h.Prot,
		Flags:               h.Flag,
		NumSectionsDeclared: h.Nsect,
	}
}

func (s *Segment) Command() types.LoadCmd { return s.Cmd }

// Raw is not meaningful for the in-memory model; writing Mach-O load
// commands back out is out of scope for this package.
func (s *Segment) Raw() []byte { return nil }

// Sections returns the segment's owned sections in insertion order.
// Callers must not retain the slice across a mutating call.
func (s *Segment) Sections() []*Section { return s.sections }

// Relocations returns the segment's relocations in their total order.
func (s *Segment) Relocations() []Relocation { return s.relocations }

// AddRelocation inserts r into the segment's ordered relocation set.
func (s *Segment) AddRelocation(r Relocation) {
	s.relocations.insert(r)
}

// AddSection inserts a new section built from ns, appending its content to
// the end of the segment's current payload window and reconciling offsets,
// virtual addresses and FileSize. It always succeeds: there is no input
// that AddSection rejects, it simply grows Data as needed.
//
// Order of operations matters: FileSize must be set from the grown Data
// buffer (not computed ahead of time) so that the invariant
// FileSize == len(Data) holds the instant AddSection returns.
func (s *Segment) AddSection(ns NewSection) *Section {
	sec := &Section{
		SectionHeader: SectionHeader{
			Name:   normalizeName(ns.Name),
			Align:  ns.Align,
			Reloff: ns.Reloff,
			Nreloc: ns.Nreloc,
			Flags:  ns.Flags,
		},
		segment: s,
		segName: s.Name,
	}

	sec.Size = uint64(len(ns.Content))
	sec.Offset = s.FileOffset + s.FileSize
	if ns.VirtualAddress == 0 {
		sec.Addr = s.VirtualAddress + sec.Offset
	} else {
		sec.Addr = ns.VirtualAddress
	}

	relative := sec.Offset - s.FileOffset
	needed := relative + sec.Size
	if uint64(len(s.Data)) < needed {
		grown := make([]byte, needed)
		copy(grown, s.Data)
		s.Data = grown
	}
	copy(s.Data[relative:relative+sec.Size], ns.Content)
	s.FileSize = uint64(len(s.Data))

	s.sections = append(s.sections, sec)
	return sec
}

// RemoveAllSections clears the section list and resets the on-disk
// declared count to 0. Data is left untouched: removing sections does not
// shrink the payload buffer, since other sections' offsets may still
// reference it.
func (s *Segment) RemoveAllSections() {
	s.NumSectionsDeclared = 0
	s.sections = nil
}

// Has reports whether sec is structurally equal to one of s's sections.
func (s *Segment) Has(sec *Section) bool {
	for _, cand := range s.sections {
		if cand.Equal(sec) {
			return true
		}
	}
	return false
}

// HasSection reports whether s owns a section with the given name.
func (s *Segment) HasSection(name string) bool {
	for _, cand := range s.sections {
		if cand.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of s: every owned Section and Relocation is
// duplicated, and each cloned section's back-reference and cached segment
// name point at the clone, not at s.
func (s *Segment) Clone() *Segment {
	cp := &Segment{
		Cmd:                 s.Cmd,
		Name:                s.Name,
		VirtualAddress:      s.VirtualAddress,
		VirtualSize:         s.VirtualSize,
		FileOffset:          s.FileOffset,
		FileSize:            s.FileSize,
		MaxProtection:       s.MaxProtection,
		InitProtection:      s.InitProtection,
		Flags:               s.Flags,
		NumSectionsDeclared: s.NumSectionsDeclared,
		Data:                append([]byte(nil), s.Data...),
		relocations:         s.relocations.clone(),
	}
	cp.sections = make([]*Section, len(s.sections))
	for i, sec := range s.sections {
		csec := sec.clone()
		csec.segment = cp
		csec.segName = cp.Name
		cp.sections[i] = csec
	}
	return cp
}

// Equal reports whether s and o are structurally identical: same scalar
// fields, same sections (in order, by content), and same relocations.
// Equality is reflexive and is computed via a structural hash rather than
// a field-by-field walk.
func (s *Segment) Equal(o *Segment) bool {
	if s == o {
		return true
	}
	if o == nil {
		return false
	}
	return s.structuralHash() == o.structuralHash()
}

func (s *Segment) structuralHash() uint64 {
	h := fnv.New64a()
	write := func(v any) { binary.Write(h, binary.LittleEndian, v) } //nolint:errcheck
	h.Write([]byte(s.Name))
	write(s.VirtualAddress)
	write(s.VirtualSize)
	write(s.FileOffset)
	write(s.FileSize)
	write(s.MaxProtection)
	write(s.InitProtection)
	write(s.Flags)
	write(s.NumSectionsDeclared)
	h.Write(s.Data)
	for _, sec := range s.sections {
		h.Write([]byte(sec.Name))
		write(sec.Addr)
		write(sec.Size)
		write(sec.Offset)
		write(sec.Align)
		write(sec.Reloff)
		write(sec.Nreloc)
		write(sec.Flags)
		write(sec.Reserved1)
		write(sec.Reserved2)
		write(sec.Reserved3)
		h.Write([]byte(sec.segName))
	}
	for _, r := range s.relocations {
		write(r.Address)
		write(r.Value)
		write(r.Type)
		write(r.Length)
		write(r.PCRel)
		write(r.External)
		write(r.Scattered)
	}
	return h.Sum64()
}

func (s *Segment) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s name=%-16s addr=%#x memsz=%#x offset=%#x filesz=%#x maxprot=%#x prot=%#x flags=%#x nsect=%d\n",
		s.Cmd, s.Name, s.VirtualAddress, s.VirtualSize, s.FileOffset, s.FileSize,
		s.MaxProtection, s.InitProtection, s.Flags, s.NumSectionsDeclared)
	for _, sec := range s.sections {
		b.WriteString(sec.String())
		b.WriteByte('\n')
	}
	return b.String()
}
