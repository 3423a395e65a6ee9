// Package macho implements the in-memory Mach-O segment/section model: a
// mutable graph where a Segment owns an ordered list of Sections, and
// editing operations (chiefly AddSection) keep file-offset, file-size and
// virtual-address bookkeeping consistent.
//
// This package does not read or write whole Mach-O files. Decoding the
// segment_command_32/64 and section/section_64 records, and assembling a
// Segment's Data buffer from a file, are the surrounding binary parser's
// job; this package only models the result and the edits made to it.
package macho

import "github.com/appsworld/go-binparse/types"

// Load is any Mach-O load command. Only Segment implements the mutable
// model described in this package; every other command a real file
// contains is opaque to it and carried as LoadCmdBytes.
type Load interface {
	Command() types.LoadCmd
	Raw() []byte
}

// LoadCmdBytes is the uninterpreted bytes of a load command this package
// has no specialized model for.
type LoadCmdBytes struct {
	Cmd types.LoadCmd
	raw []byte
}

// NewLoadCmdBytes wraps raw command bytes under the given tag.
func NewLoadCmdBytes(cmd types.LoadCmd, raw []byte) LoadCmdBytes {
	return LoadCmdBytes{Cmd: cmd, raw: append([]byte(nil), raw...)}
}

func (b LoadCmdBytes) Command() types.LoadCmd { return b.Cmd }
func (b LoadCmdBytes) Raw() []byte            { return b.raw }

// IsSegment reports whether l tags a 32 or 64-bit segment command, i.e.
// whether it can be safely type-asserted to *Segment.
func IsSegment(l Load) bool {
	return l.Command().IsSegment()
}
