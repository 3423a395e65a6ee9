package pe

import (
	"log/slog"

	"github.com/appsworld/go-binparse/bstream"
)

// importDescriptorSize is sizeof(IMAGE_IMPORT_DESCRIPTOR).
const importDescriptorSize = 20

type importDescriptor struct {
	OriginalFirstThunk uint32 // RVA to the Import Lookup Table
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32 // RVA to the DLL name
	FirstThunk         uint32 // RVA to the Import Address Table
}

const (
	ordinalFlag32 = uint32(0x80000000)
	ordinalFlag64 = uint64(0x8000000000000000)
)

// ImportEntry is one resolved slot of a DLL's import thunk pair (ILT/IAT).
type ImportEntry struct {
	DLL        string
	Ordinal    uint16
	IsOrdinal  bool
	Hint       uint16
	Name       string
	IATValue   uint64
	RVA        uint32
}

// ImportDescriptor groups the entries imported from a single DLL.
type ImportDescriptor struct {
	DLL     string
	Entries []ImportEntry
}

func isValidDLLName(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func isValidImportName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// parseImports walks the import descriptor array at importRVA, then for
// each descriptor walks the ILT/IAT in lockstep until both slots read zero.
// Every per-descriptor and per-entry failure is just skipped: an import
// directory with one corrupt descriptor still yields every other import.
func (f *File) parseImports(log *slog.Logger) ([]ImportDescriptor, error) {
	off, ok := RVAToOffset(f.Sections, f.directories[DirImport].RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "import directory RVA has no backing section"}
	}

	pointerWidth := 4
	if f.Variant == PE32Plus {
		pointerWidth = 8
	}

	var descriptors []ImportDescriptor
	cursor := int64(off)
	for {
		d, err := bstream.Peek[importDescriptor](f.stream, cursor)
		if err != nil {
			return descriptors, err
		}
		if d.Name == 0 {
			break
		}
		cursor += importDescriptorSize

		nameOff, ok := RVAToOffset(f.Sections, d.Name)
		if !ok {
			log.Warn("import descriptor DLL name RVA has no backing section", "rva", d.Name)
			continue
		}
		dllName, err := f.stream.PeekStringAt(int64(nameOff))
		if err != nil {
			log.Warn("failed to read import descriptor DLL name", "error", err)
			continue
		}
		if dllName == "" {
			continue
		}
		if !isValidDLLName(dllName) {
			log.Warn("discarding import descriptor with invalid DLL name", "name", dllName)
			continue
		}

		iltRVA := d.OriginalFirstThunk
		iatRVA := d.FirstThunk
		desc := ImportDescriptor{DLL: dllName}

		for idx := 0; ; idx++ {
			iltOff, iltHasSection := RVAToOffset(f.Sections, iltRVA+uint32(idx*pointerWidth))
			iatOff, iatHasSection := RVAToOffset(f.Sections, iatRVA+uint32(idx*pointerWidth))

			var iltVal, iatVal uint64
			if iltHasSection {
				iltVal, _ = readThunk(f.stream, int64(iltOff), pointerWidth)
			}
			if iatHasSection {
				iatVal, _ = readThunk(f.stream, int64(iatOff), pointerWidth)
			}
			if iltVal == 0 && iatVal == 0 {
				break
			}

			data := iltVal
			if data == 0 {
				data = iatVal
			}

			entry := ImportEntry{
				DLL:      dllName,
				IATValue: iatVal,
				RVA:      iatRVA + uint32(idx*pointerWidth),
			}
			entry.IsOrdinal = isOrdinal(data, pointerWidth)
			if entry.IsOrdinal {
				entry.Ordinal = uint16(data)
				desc.Entries = append(desc.Entries, entry)
				continue
			}

			hintNameRVA := uint32(data &^ uint64(1<<63))
			hintOff, ok := RVAToOffset(f.Sections, hintNameRVA)
			if !ok {
				continue
			}
			hint, err := bstream.Peek[uint16](f.stream, int64(hintOff))
			if err != nil {
				continue
			}
			name, err := f.stream.PeekStringAt(int64(hintOff) + 2)
			if err != nil {
				continue
			}
			if name == "" {
				continue
			}
			if !isValidImportName(name) {
				log.Info("discarding import entry with invalid name", "dll", dllName, "name", name)
				continue
			}
			entry.Hint = hint
			entry.Name = name
			desc.Entries = append(desc.Entries, entry)
		}

		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

func readThunk(s *bstream.Stream, offset int64, pointerWidth int) (uint64, error) {
	if pointerWidth == 8 {
		return bstream.Peek[uint64](s, offset)
	}
	v, err := bstream.Peek[uint32](s, offset)
	return uint64(v), err
}

func isOrdinal(thunk uint64, pointerWidth int) bool {
	if pointerWidth == 8 {
		return thunk&ordinalFlag64 != 0
	}
	return uint32(thunk)&ordinalFlag32 != 0
}
