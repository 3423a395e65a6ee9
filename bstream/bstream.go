// Package bstream implements a bounds-checked, random-access cursor over an
// in-memory byte buffer. It is the common substrate the Mach-O and PE
// decoders read fixed-layout records from: every multi-byte structure in
// either format is little-endian, so a single reader serves both.
package bstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ErrorKind classifies why a Stream operation failed.
type ErrorKind int

const (
	// OutOfBounds means the requested offset (or offset+length) falls
	// outside the backing buffer.
	OutOfBounds ErrorKind = iota
	// ShortRead means decoding failed on bytes that were within bounds. A
	// record that starts inside the buffer but runs past its end is
	// reported as OutOfBounds, not ShortRead.
	ShortRead
)

func (k ErrorKind) String() string {
	switch k {
	case OutOfBounds:
		return "out of bounds"
	case ShortRead:
		return "short read"
	default:
		return "unknown"
	}
}

// ReadError reports a failed Stream read or peek. It never carries partial
// data: callers either get a fully decoded value or a ReadError.
type ReadError struct {
	Kind   ErrorKind
	Offset int64
	Length int
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("bstream: %s at offset %#x (len %d)", e.Kind, e.Offset, e.Length)
}

// Stream is a read-only view over buf plus a mutable cursor. It is not safe
// for concurrent use: callers sharing a single Stream across goroutines must
// synchronize externally, but distinct Streams over the same (or different)
// buffers may be used concurrently since buf is never mutated.
type Stream struct {
	buf []byte
	pos int64
}

// New returns a Stream over buf with the cursor positioned at 0.
func New(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// Len returns the length of the backing buffer.
func (s *Stream) Len() int64 { return int64(len(s.buf)) }

// Pos returns the current cursor position.
func (s *Stream) Pos() int64 { return s.pos }

// SetPos moves the cursor to offset. Out-of-range offsets are permitted;
// subsequent reads from them will fail with OutOfBounds.
func (s *Stream) SetPos(offset int64) { s.pos = offset }

// Bytes returns the backing buffer. Callers must not mutate it.
func (s *Stream) Bytes() []byte { return s.buf }

// PeekData copies n bytes starting at offset into dst without moving the
// cursor. dst must have length >= n.
func (s *Stream) PeekData(dst []byte, offset int64, n int) error {
	if offset < 0 || n < 0 {
		return &ReadError{Kind: OutOfBounds, Offset: offset, Length: n}
	}
	if offset+int64(n) > s.Len() {
		return &ReadError{Kind: OutOfBounds, Offset: offset, Length: n}
	}
	copy(dst, s.buf[offset:offset+int64(n)])
	return nil
}

// ReadData copies n bytes starting at the cursor into dst and advances the
// cursor by n. On failure the cursor is left unchanged.
func (s *Stream) ReadData(dst []byte, n int) error {
	if err := s.PeekData(dst, s.pos, n); err != nil {
		return err
	}
	s.pos += int64(n)
	return nil
}

// PeekStringAt reads a NUL-terminated string starting at offset, bounded by
// the end of the buffer. A missing terminator before the buffer end is an
// OutOfBounds error, not a truncated result.
func (s *Stream) PeekStringAt(offset int64) (string, error) {
	if offset < 0 || offset > s.Len() {
		return "", &ReadError{Kind: OutOfBounds, Offset: offset}
	}
	end := bytes.IndexByte(s.buf[offset:], 0)
	if end == -1 {
		return "", &ReadError{Kind: OutOfBounds, Offset: offset, Length: len(s.buf) - int(offset)}
	}
	return string(s.buf[offset : offset+int64(end)]), nil
}

// Peek decodes a fixed-layout little-endian record of type T at offset
// without moving the cursor.
func Peek[T any](s *Stream, offset int64) (T, error) {
	var v T
	n := binary.Size(v)
	if n <= 0 {
		return v, fmt.Errorf("bstream: %T has no fixed binary size", v)
	}
	if offset < 0 || offset+int64(n) > s.Len() {
		return v, &ReadError{Kind: OutOfBounds, Offset: offset, Length: n}
	}
	r := bytes.NewReader(s.buf[offset : offset+int64(n)])
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return v, &ReadError{Kind: ShortRead, Offset: offset, Length: n}
	}
	return v, nil
}

// Read decodes a fixed-layout little-endian record of type T at the cursor
// and advances the cursor by sizeof(T). On failure the cursor is unchanged.
func Read[T any](s *Stream) (T, error) {
	v, err := Peek[T](s, s.pos)
	if err != nil {
		return v, err
	}
	s.pos += int64(binary.Size(v))
	return v, nil
}
