package pe

import "github.com/appsworld/go-binparse/bstream"

// imageExportDirectory is IMAGE_EXPORT_DIRECTORY.
type imageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// ExportEntry is one resolved export: either named (Name set, matched
// against its ordinal via the name-ordinal table) or ordinal-only.
type ExportEntry struct {
	Name      string
	Ordinal   uint32
	RVA       uint32
	Forwarder string
}

// ExportDirectory is the decoded export table.
type ExportDirectory struct {
	DLLName string
	Base    uint32
	Entries []ExportEntry
}

// parseExports decodes the function address table, then overlays names
// from the parallel name/name-ordinal tables onto the ordinals they
// target. A function RVA landing inside the export directory itself is a
// forwarder (a "redirect to OtherDLL.Func" string instead of code).
func (f *File) parseExports() (*ExportDirectory, error) {
	dir := f.directories[DirExport]
	off, ok := RVAToOffset(f.Sections, dir.RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "export directory RVA has no backing section"}
	}
	d, err := bstream.Peek[imageExportDirectory](f.stream, int64(off))
	if err != nil {
		return nil, err
	}

	dllName := ""
	if nameOff, ok := RVAToOffset(f.Sections, d.Name); ok {
		dllName, _ = f.stream.PeekStringAt(int64(nameOff))
	}

	ed := &ExportDirectory{DLLName: dllName, Base: d.Base}

	funcsOff, ok := RVAToOffset(f.Sections, d.AddressOfFunctions)
	if !ok {
		return ed, nil
	}
	functions := make([]uint32, d.NumberOfFunctions)
	for i := range functions {
		v, err := bstream.Peek[uint32](f.stream, int64(funcsOff)+int64(i)*4)
		if err != nil {
			break
		}
		functions[i] = v
	}

	names := make(map[uint16]string)
	if namesOff, ok := RVAToOffset(f.Sections, d.AddressOfNames); ok {
		if ordOff, ok := RVAToOffset(f.Sections, d.AddressOfNameOrdinals); ok {
			for i := uint32(0); i < d.NumberOfNames; i++ {
				nameRVA, err := bstream.Peek[uint32](f.stream, int64(namesOff)+int64(i)*4)
				if err != nil {
					break
				}
				ordinal, err := bstream.Peek[uint16](f.stream, int64(ordOff)+int64(i)*2)
				if err != nil {
					break
				}
				nameOff, ok := RVAToOffset(f.Sections, nameRVA)
				if !ok {
					continue
				}
				name, err := f.stream.PeekStringAt(int64(nameOff))
				if err != nil {
					continue
				}
				names[ordinal] = name
			}
		}
	}

	exportStart, exportEnd := dir.RVA, dir.RVA+dir.Size
	for i, rva := range functions {
		if rva == 0 {
			continue
		}
		entry := ExportEntry{
			Ordinal: d.Base + uint32(i),
			RVA:     rva,
			Name:    names[uint16(i)],
		}
		if rva >= exportStart && rva < exportEnd {
			if fwdOff, ok := RVAToOffset(f.Sections, rva); ok {
				if fwd, err := f.stream.PeekStringAt(int64(fwdOff)); err == nil {
					entry.Forwarder = fwd
				}
			}
		}
		ed.Entries = append(ed.Entries, entry)
	}

	return ed, nil
}
