package pe

import "github.com/appsworld/go-binparse/bstream"

// baseRelocationBlockHeader precedes each block of packed relocation
// entries in the .reloc section: a page RVA and the block's total byte
// size (header included).
type baseRelocationBlockHeader struct {
	PageRVA   uint32
	BlockSize uint32
}

// RelocationType is the high 4 bits of a packed relocation entry
// (IMAGE_REL_BASED_*).
type RelocationType uint8

const (
	RelocBasedAbsolute RelocationType = 0
	RelocBasedHigh     RelocationType = 1
	RelocBasedLow      RelocationType = 2
	RelocBasedHighLow  RelocationType = 3
	RelocBasedHighAdj  RelocationType = 4
	RelocBasedDir64    RelocationType = 10
)

// Relocation is one unpacked entry: PageRVA + Offset is the RVA the
// relocation applies to.
type Relocation struct {
	Type   RelocationType
	Offset uint16
}

// BaseRelocationBlock is one page's worth of relocations.
type BaseRelocationBlock struct {
	PageRVA     uint32
	Relocations []Relocation
}

// parseRelocations walks the .reloc directory as a sequence of
// variable-length blocks, each a 8-byte header followed by BlockSize-8
// bytes of packed 16-bit (type:4, offset:12) entries. A block with
// BlockSize smaller than the header aborts the whole walk: it cannot be
// skipped without risking an infinite loop.
func (f *File) parseRelocations() ([]BaseRelocationBlock, error) {
	dir := f.directories[DirBaseReloc]
	off, ok := RVAToOffset(f.Sections, dir.RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "base relocation directory RVA has no backing section"}
	}

	end := int64(off) + int64(dir.Size)
	var blocks []BaseRelocationBlock
	cursor := int64(off)
	for cursor < end {
		h, err := bstream.Peek[baseRelocationBlockHeader](f.stream, cursor)
		if err != nil {
			return blocks, err
		}
		if h.BlockSize < 8 {
			return blocks, &CorruptedInput{Reason: "base relocation block size smaller than its header"}
		}

		entryCount := (h.BlockSize - 8) / 2
		block := BaseRelocationBlock{PageRVA: h.PageRVA}
		entryCursor := cursor + 8
		for i := uint32(0); i < entryCount; i++ {
			packed, err := bstream.Peek[uint16](f.stream, entryCursor)
			if err != nil {
				break
			}
			block.Relocations = append(block.Relocations, Relocation{
				Type:   RelocationType(packed >> 12),
				Offset: packed & 0x0fff,
			})
			entryCursor += 2
		}
		blocks = append(blocks, block)
		cursor += int64(h.BlockSize)
	}
	return blocks, nil
}
