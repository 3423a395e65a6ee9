package macho

import "sort"

// Relocation is a Mach-O relocation entry belonging to a segment's
// relocation list (modern Mach-O carries relocations at the segment level
// via LC_DYLD_*; legacy object files carry them per-section, but this
// package models only the segment-owned list).
type Relocation struct {
	Address uint32
	Value   uint32
	// Type and Length follow the reloc_info_type/r_length encoding: when
	// Scattered is false and External is true, Value is a symbol number;
	// when both are false, Value is a section number; when Scattered is
	// true, Value is the referenced value itself.
	Type      uint8
	Length    uint8 // 0=byte, 1=word, 2=long, 3=quad
	PCRel     bool
	External  bool
	Scattered bool
}

// Less defines the total order relocations are kept in: by Address, then
// Value, then Type. It exists purely to make iteration deterministic.
func (r Relocation) Less(o Relocation) bool {
	if r.Address != o.Address {
		return r.Address < o.Address
	}
	if r.Value != o.Value {
		return r.Value < o.Value
	}
	return r.Type < o.Type
}

// relocationSet is a slice kept sorted by Relocation.Less at all times.
type relocationSet []Relocation

func (s *relocationSet) insert(r Relocation) {
	i := sort.Search(len(*s), func(i int) bool { return !(*s)[i].Less(r) })
	*s = append(*s, Relocation{})
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = r
}

func (s relocationSet) clone() relocationSet {
	return append(relocationSet(nil), s...)
}
