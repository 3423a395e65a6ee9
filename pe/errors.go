package pe

import "errors"

// ParsingError is returned when a mandatory pipeline step fails. Only
// reading the input and header decoding (DOS header, PE header, optional
// header) are mandatory; every later step is wrapped in warnAndContinue and
// never produces one.
type ParsingError struct {
	Step string
	Err  error
}

func (e *ParsingError) Error() string {
	return "pe: " + e.Step + ": " + e.Err.Error()
}

func (e *ParsingError) Unwrap() error { return e.Err }

// CorruptedInput reports a structural inconsistency a decoder detected
// that isn't a raw byte-level read failure, e.g. a section count that
// would run past the end of the file.
type CorruptedInput struct {
	Reason string
}

func (e *CorruptedInput) Error() string { return "pe: corrupted input: " + e.Reason }

// ErrNotFound reports that an optional structure is absent: parseSignature
// returns it for an empty certificate directory and parseCodeView for a
// CodeView record without an RSDS signature. The section lookups
// (RVAToOffset, SectionFromOffset) report a miss through their bool result
// instead.
var ErrNotFound = errors.New("pe: not found")
