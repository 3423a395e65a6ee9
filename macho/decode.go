package macho

import (
	"github.com/appsworld/go-binparse/bstream"
	"github.com/appsworld/go-binparse/types"
)

// DecodeSegmentHeader32 decodes a segment_command at offset. It is a pure
// function: it does not validate Nsect against the buffer length, follow
// Offset/Filesz, or otherwise interpret the record beyond the byte layout.
func DecodeSegmentHeader32(s *bstream.Stream, offset int64) (types.Segment32, error) {
	return bstream.Peek[types.Segment32](s, offset)
}

// DecodeSegmentHeader64 decodes a segment_command_64 at offset.
func DecodeSegmentHeader64(s *bstream.Stream, offset int64) (types.Segment64, error) {
	return bstream.Peek[types.Segment64](s, offset)
}

// DecodeSectionHeader32 decodes a section record at offset.
func DecodeSectionHeader32(s *bstream.Stream, offset int64) (types.Section32, error) {
	return bstream.Peek[types.Section32](s, offset)
}

// DecodeSectionHeader64 decodes a section_64 record at offset.
func DecodeSectionHeader64(s *bstream.Stream, offset int64) (types.Section64, error) {
	return bstream.Peek[types.Section64](s, offset)
}

// newSectionFromHeader32 turns a decoded on-disk section record plus its
// payload bytes into the candidate the model's AddSection expects. The
// segname field is ignored: ownership is established positionally, by
// which segment's trailing section array the record came from.
func newSectionFromHeader32(h types.Section32, content []byte) NewSection {
	return NewSection{
		Name:           normalizeName(string(h.Name[:])),
		VirtualAddress: uint64(h.Addr),
		Content:        content,
		Align:          h.Align,
		Reloff:         h.Reloff,
		Nreloc:         h.Nreloc,
		Flags:          h.Flags,
	}
}

func newSectionFromHeader64(h types.Section64, content []byte) NewSection {
	return NewSection{
		Name:           normalizeName(string(h.Name[:])),
		VirtualAddress: h.Addr,
		Content:        content,
		Align:          h.Align,
		Reloff:         h.Reloff,
		Nreloc:         h.Nreloc,
		Flags:          h.Flags,
	}
}

// NewSectionFromHeader32 exposes newSectionFromHeader32 for callers outside
// the package (a surrounding binary parser decoding a real file).
func NewSectionFromHeader32(h types.Section32, content []byte) NewSection {
	return newSectionFromHeader32(h, content)
}

// NewSectionFromHeader64 exposes newSectionFromHeader64.
func NewSectionFromHeader64(h types.Section64, content []byte) NewSection {
	return newSectionFromHeader64(h, content)
}
