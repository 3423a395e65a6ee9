package macho

import (
	"bytes"
	"testing"

	"github.com/appsworld/go-binparse/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// S1: happy-path single insert.
func TestAddSectionHappyPath(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.VirtualAddress = 0x1000

	content := bytes.Repeat([]byte{0xAA}, 16)
	sec := seg.AddSection(NewSection{Name: "__text", Content: content})

	if seg.FileSize != 16 {
		t.Errorf("FileSize = %d, want 16", seg.FileSize)
	}
	if sec.Offset != 0 {
		t.Errorf("sec.Offset = %#x, want 0", sec.Offset)
	}
	if sec.Addr != 0x1000 {
		t.Errorf("sec.Addr = %#x, want 0x1000", sec.Addr)
	}
	if !bytes.Equal(seg.Data[:16], content) {
		t.Errorf("seg.Data[:16] = %x, want %x", seg.Data[:16], content)
	}
	if len(seg.Sections()) != 1 {
		t.Errorf("len(Sections()) = %d, want 1", len(seg.Sections()))
	}
}

// S2: two back-to-back inserts.
func TestAddSectionTwoInserts(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.VirtualAddress = 0x1000

	a := seg.AddSection(NewSection{Name: "__text", Content: bytes.Repeat([]byte{0xAA}, 16)})
	b := seg.AddSection(NewSection{Name: "__cstring", Content: bytes.Repeat([]byte{0xBB}, 8)})

	if seg.FileSize != 24 {
		t.Errorf("FileSize = %d, want 24", seg.FileSize)
	}
	if b.Offset != a.Offset+16 {
		t.Errorf("b.Offset = %#x, want %#x", b.Offset, a.Offset+16)
	}
	if b.Addr != 0x1010 {
		t.Errorf("b.Addr = %#x, want 0x1010", b.Addr)
	}
}

// S3: clone equality, and mutation independence.
func TestCloneEquality(t *testing.T) {
	seg := NewSegment("__DATA", nil)
	seg.AddSection(NewSection{Name: "__data", Content: []byte("hello")})

	clone := seg.Clone()
	if !seg.Equal(clone) {
		t.Fatal("clone should be structurally equal to the original")
	}

	clone.Name = "__DATA_CONST"
	if seg.Name != "__DATA" {
		t.Errorf("mutating the clone's name changed the original: %q", seg.Name)
	}
	if seg.Equal(clone) {
		t.Error("renaming the clone should have broken equality")
	}
}

func TestEqualityReflexive(t *testing.T) {
	seg := NewSegment("__TEXT", []byte{1, 2, 3})
	if !seg.Equal(seg) {
		t.Error("a segment must be equal to itself")
	}
}

// Invariant 1 & 2: offsets stay within bounds and Data mirrors FileSize
// after a sequence of inserts.
func TestInvariantsAfterInserts(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.FileOffset = 0x100
	seg.VirtualAddress = 0x2000

	contents := [][]byte{[]byte("aaaa"), []byte("bb"), []byte("ccccccc")}
	for i, c := range contents {
		seg.AddSection(NewSection{Name: string(rune('a' + i)), Content: c})
	}

	if uint64(len(seg.Data)) != seg.FileSize {
		t.Fatalf("FileSize (%d) != len(Data) (%d)", seg.FileSize, len(seg.Data))
	}
	for _, sec := range seg.Sections() {
		if sec.Offset < seg.FileOffset || sec.Offset+sec.Size > seg.FileOffset+seg.FileSize {
			t.Errorf("section %s out of bounds: off=%#x size=%#x segment=[%#x,%#x)",
				sec.Name, sec.Offset, sec.Size, seg.FileOffset, seg.FileOffset+seg.FileSize)
		}
		rel := sec.Offset - seg.FileOffset
		if !bytes.Equal(seg.Data[rel:rel+sec.Size], sec.Content()) {
			t.Errorf("section %s content does not match its slice of Data", sec.Name)
		}
	}
}

// Testable property 6: round-trip Has/HasSection.
func TestHasAfterAddSection(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	sec := seg.AddSection(NewSection{Name: "__text", Content: []byte{1}})

	if !seg.Has(sec) {
		t.Error("Has(sec) = false, want true")
	}
	if !seg.HasSection("__text") {
		t.Error("HasSection(\"__text\") = false, want true")
	}
	if seg.HasSection("__nope") {
		t.Error("HasSection(\"__nope\") = true, want false")
	}
}

// Testable property 5: remove_all_sections leaves Data untouched.
func TestRemoveAllSections(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.NumSectionsDeclared = 3
	seg.AddSection(NewSection{Name: "__text", Content: []byte{1, 2, 3}})
	dataBefore := append([]byte(nil), seg.Data...)

	seg.RemoveAllSections()

	if len(seg.Sections()) != 0 {
		t.Error("Sections() should be empty after RemoveAllSections")
	}
	if seg.NumSectionsDeclared != 0 {
		t.Errorf("NumSectionsDeclared = %d, want 0", seg.NumSectionsDeclared)
	}
	if !bytes.Equal(seg.Data, dataBefore) {
		t.Error("RemoveAllSections must not touch Data")
	}
}

func TestAddSectionPreservesExplicitVirtualAddress(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.VirtualAddress = 0x4000

	sec := seg.AddSection(NewSection{Name: "__fixed", Content: []byte{1}, VirtualAddress: 0xdead0000})
	if sec.Addr != 0xdead0000 {
		t.Errorf("sec.Addr = %#x, want explicit 0xdead0000", sec.Addr)
	}
}

func TestNewSegmentFromHeader64(t *testing.T) {
	h := types.Segment64{
		LoadCmd: types.LC_SEGMENT_64,
		Len:     0x98,
		Addr:    0x1000,
		Memsz:   0x2000,
		Offset:  0x400,
		Filesz:  0x1800,
		Nsect:   2,
	}
	copy(h.Name[:], "__TEXT")

	seg := NewSegmentFromHeader64(h)
	if seg.Name != "__TEXT" {
		t.Errorf("Name = %q, want __TEXT", seg.Name)
	}
	if seg.Cmd != types.LC_SEGMENT_64 {
		t.Errorf("Cmd = %v, want LC_SEGMENT_64", seg.Cmd)
	}
	if !IsSegment(seg) {
		t.Error("IsSegment(seg) = false, want true")
	}
	if len(seg.Sections()) != 0 {
		t.Error("a freshly decoded segment must start with no sections")
	}
}

func TestRelocationOrdering(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.AddRelocation(Relocation{Address: 0x20, Value: 1})
	seg.AddRelocation(Relocation{Address: 0x10, Value: 2})
	seg.AddRelocation(Relocation{Address: 0x10, Value: 1})

	got := seg.Relocations()
	want := []Relocation{
		{Address: 0x10, Value: 1},
		{Address: 0x10, Value: 2},
		{Address: 0x20, Value: 1},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("relocations not in total order (-want +got):\n%s", diff)
	}
}

func TestCloneDuplicatesRelocations(t *testing.T) {
	seg := NewSegment("__TEXT", nil)
	seg.AddRelocation(Relocation{Address: 1})
	clone := seg.Clone()
	clone.AddRelocation(Relocation{Address: 2})

	if len(seg.Relocations()) != 1 {
		t.Errorf("original relocations mutated by clone: got %d", len(seg.Relocations()))
	}
	if len(clone.Relocations()) != 2 {
		t.Errorf("clone should have its own appended relocation: got %d", len(clone.Relocations()))
	}
}
