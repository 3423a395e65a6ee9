package macho

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"strings"

	"github.com/blacktop/go-dwarf"
)

func dwarfSuffix(name string) string {
	switch {
	case strings.HasPrefix(name, "__debug_"):
		return name[8:]
	case strings.HasPrefix(name, "__zdebug_"):
		return name[9:]
	default:
		return ""
	}
}

// sectionPayload returns a section's content, inflating it first if it
// carries the zlib-compressed __zdebug_* envelope (a 4-byte "ZLIB" magic
// followed by an 8-byte big-endian uncompressed size).
func sectionPayload(sec *Section) ([]byte, error) {
	b := sec.Content()
	if len(b) >= 12 && string(b[:4]) == "ZLIB" {
		dlen := binary.BigEndian.Uint64(b[4:12])
		dbuf := make([]byte, dlen)
		r, err := zlib.NewReader(bytes.NewReader(b[12:]))
		if err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, dbuf); err != nil {
			return nil, err
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
		return dbuf, nil
	}
	return b, nil
}

// DWARF assembles the DWARF debug information embedded in this segment's
// sections, e.g. a __DWARF segment's __debug_info/__debug_abbrev/etc.
// Sections the debug/dwarf package doesn't consume are ignored.
func (s *Segment) DWARF() (*dwarf.Data, error) {
	dat := map[string][]byte{"abbrev": nil, "info": nil, "str": nil, "line": nil, "ranges": nil}
	for _, sec := range s.sections {
		suffix := dwarfSuffix(sec.Name)
		if suffix == "" {
			continue
		}
		if _, ok := dat[suffix]; !ok {
			continue
		}
		b, err := sectionPayload(sec)
		if err != nil {
			return nil, err
		}
		dat[suffix] = b
	}
	return dwarf.New(dat["abbrev"], nil, nil, dat["info"], dat["line"], nil, dat["ranges"], dat["str"])
}
