package pe

import "github.com/appsworld/go-binparse/bstream"

// debugDirectorySize is sizeof(IMAGE_DEBUG_DIRECTORY).
const debugDirectorySize = 28

// Debug directory entry types (IMAGE_DEBUG_TYPE_*). Only CodeView entries
// with an RSDS signature carry a parsed Info payload below; the rest
// surface as a bare DebugEntry with Info == nil.
const (
	ImageDebugTypeUnknown              = 0
	ImageDebugTypeCOFF                 = 1
	ImageDebugTypeCodeView              = 2
	ImageDebugTypeFPO                  = 3
	ImageDebugTypeMisc                  = 4
	ImageDebugTypeException             = 5
	ImageDebugTypeFixup                 = 6
	ImageDebugTypeOMAPToSrc             = 7
	ImageDebugTypeOMAPFromSrc           = 8
	ImageDebugTypeBorland                = 9
	ImageDebugTypeReserved10             = 10
	ImageDebugTypeCLSID                 = 11
	ImageDebugTypeVCFeature              = 12
	ImageDebugTypePOGO                   = 13
	ImageDebugTypeILTCG                  = 14
	ImageDebugTypeMPX                    = 15
	ImageDebugTypeRepro                  = 16
	ImageDebugTypeExDllCharacteristics   = 20
)

// CodeView signatures identifying which PDB-reference shape follows.
const (
	CVSignatureRSDS = 0x53445352 // "RSDS", PDB 7.0
	CVSignatureNB10 = 0x3031424e // "NB10", PDB 2.0
)

type imageDebugDirectory struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

// CVInfoPDB70 is the CodeView payload for a PDB 7.0 reference.
type CVInfoPDB70 struct {
	Signature   [16]byte
	Age         uint32
	PDBFileName string
}

// DebugEntry pairs a decoded IMAGE_DEBUG_DIRECTORY with whatever payload
// this package knows how to decode for its Type, which is nil for types
// this package only records the directory header for.
type DebugEntry struct {
	Type             uint32
	TimeDateStamp    uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
	Info             any
}

func (f *File) parseDebug() ([]DebugEntry, error) {
	dir := f.directories[DirDebug]
	off, ok := RVAToOffset(f.Sections, dir.RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "debug directory RVA has no backing section"}
	}

	count := int(dir.Size) / debugDirectorySize
	entries := make([]DebugEntry, 0, count)
	cursor := int64(off)
	for i := 0; i < count; i++ {
		d, err := bstream.Peek[imageDebugDirectory](f.stream, cursor)
		if err != nil {
			return entries, err
		}
		cursor += debugDirectorySize

		entry := DebugEntry{
			Type:             d.Type,
			TimeDateStamp:    d.TimeDateStamp,
			SizeOfData:       d.SizeOfData,
			AddressOfRawData: d.AddressOfRawData,
			PointerToRawData: d.PointerToRawData,
		}

		if d.Type == ImageDebugTypeCodeView && d.PointerToRawData != 0 {
			if info, err := parseCodeView(f.stream, int64(d.PointerToRawData)); err == nil {
				entry.Info = info
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func parseCodeView(s *bstream.Stream, offset int64) (*CVInfoPDB70, error) {
	sig, err := bstream.Peek[uint32](s, offset)
	if err != nil {
		return nil, err
	}
	if sig != CVSignatureRSDS {
		return nil, ErrNotFound
	}
	rec, err := bstream.Peek[struct {
		Signature [16]byte
		Age       uint32
	}](s, offset+4)
	if err != nil {
		return nil, err
	}
	name, err := s.PeekStringAt(offset + 4 + 16 + 4)
	if err != nil {
		name = ""
	}
	return &CVInfoPDB70{Signature: rec.Signature, Age: rec.Age, PDBFileName: name}, nil
}
