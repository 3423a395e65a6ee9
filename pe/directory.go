package pe

import "github.com/appsworld/go-binparse/bstream"

// decodeDataDirectories reads the fixed-count array of {RVA,Size} pairs
// immediately following the optional header. A decode failure here aborts
// just this step (the caller wraps it in warnAndContinue): the PE
// specification mandates a final null entry, but this function reads every
// slot regardless of whether earlier ones are null, since real-world files
// are known to violate that rule.
func decodeDataDirectories(s *bstream.Stream, offset int64) ([NumDataDirectories]DataDirectory, error) {
	var dirs [NumDataDirectories]DataDirectory
	for i := 0; i < NumDataDirectories; i++ {
		d, err := bstream.Peek[DataDirectory](s, offset)
		if err != nil {
			return dirs, err
		}
		dirs[i] = d
		offset += 8
	}
	return dirs, nil
}

// tagSection marks the section backing a data directory (if any) with that
// directory's semantic kind.
func tagSection(sections []Section, rva uint32, kind DirectoryKind) {
	if sec, ok := sectionFromRVA(sections, rva); ok {
		sec.Kind = kind
		sec.HasKind = true
	}
}
