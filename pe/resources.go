package pe

import "github.com/appsworld/go-binparse/bstream"

// maxResourceDepth bounds how deep the resource tree walk recurses,
// defending against a directory entry whose subdirectory offset loops
// back on an ancestor.
const maxResourceDepth = 8

type imageResourceDirectory struct {
	Characteristics     uint32
	TimeDateStamp       uint32
	MajorVersion        uint16
	MinorVersion        uint16
	NumberOfNamedEntries uint16
	NumberOfIDEntries    uint16
}

type imageResourceDirectoryEntry struct {
	NameOrID     uint32
	OffsetToData uint32
}

type imageResourceDataEntry struct {
	OffsetToData uint32
	Size         uint32
	CodePage     uint32
	Reserved     uint32
}

// ResourceNode is one entry of the resource directory tree. Leaf nodes
// (IsLeaf true) carry RVA/Size pointing at the raw resource payload;
// interior nodes carry Children.
type ResourceNode struct {
	ID       uint32
	IsLeaf   bool
	RVA      uint32
	Size     uint32
	Children []*ResourceNode
}

const resourceEntryHighBit = uint32(1) << 31

func (f *File) parseResources() (*ResourceNode, error) {
	off, ok := RVAToOffset(f.Sections, f.directories[DirResource].RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "resource directory RVA has no backing section"}
	}
	return f.parseResourceDirectory(int64(off), int64(off), 0)
}

func (f *File) parseResourceDirectory(base, offset int64, depth int) (*ResourceNode, error) {
	if depth > maxResourceDepth {
		return nil, &CorruptedInput{Reason: "resource directory nested past the depth limit"}
	}

	hdr, err := bstream.Peek[imageResourceDirectory](f.stream, offset)
	if err != nil {
		return nil, err
	}
	total := int(hdr.NumberOfNamedEntries) + int(hdr.NumberOfIDEntries)

	node := &ResourceNode{}
	entryOffset := offset + 16
	for i := 0; i < total; i++ {
		entry, err := bstream.Peek[imageResourceDirectoryEntry](f.stream, entryOffset)
		if err != nil {
			break
		}
		entryOffset += 8

		child, err := f.parseResourceEntry(base, entry, depth)
		if err != nil {
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (f *File) parseResourceEntry(base int64, entry imageResourceDirectoryEntry, depth int) (*ResourceNode, error) {
	id := entry.NameOrID &^ resourceEntryHighBit

	if entry.OffsetToData&resourceEntryHighBit != 0 {
		child, err := f.parseResourceDirectory(base, base+int64(entry.OffsetToData&^resourceEntryHighBit), depth+1)
		if err != nil {
			return nil, err
		}
		child.ID = id
		return child, nil
	}

	data, err := bstream.Peek[imageResourceDataEntry](f.stream, base+int64(entry.OffsetToData))
	if err != nil {
		return nil, err
	}
	return &ResourceNode{ID: id, IsLeaf: true, RVA: data.OffsetToData, Size: data.Size}, nil
}
