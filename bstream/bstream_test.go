package bstream

import (
	"testing"
)

type u32pair struct {
	A uint32
	B uint32
}

func TestPeekAndRead(t *testing.T) {
	buf := make([]byte, 16)
	buf[0], buf[4] = 1, 2 // little-endian A=1, B=2 at offset 0

	s := New(buf)
	v, err := Peek[u32pair](s, 0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if v.A != 1 || v.B != 2 {
		t.Errorf("Peek = %+v, want {1 2}", v)
	}
	if s.Pos() != 0 {
		t.Errorf("Peek must not move the cursor, pos=%d", s.Pos())
	}

	v2, err := Read[u32pair](s)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v2 != v {
		t.Errorf("Read = %+v, want %+v", v2, v)
	}
	if s.Pos() != 8 {
		t.Errorf("Read must advance the cursor by sizeof(T), pos=%d", s.Pos())
	}
}

func TestReadOutOfBoundsLeavesCursorUnchanged(t *testing.T) {
	s := New(make([]byte, 4))
	s.SetPos(2)
	if _, err := Read[u32pair](s); err == nil {
		t.Fatal("expected an error reading past the buffer end")
	}
	if s.Pos() != 2 {
		t.Errorf("cursor moved on failed read: pos=%d, want 2", s.Pos())
	}
}

func TestPeekStringAt(t *testing.T) {
	s := New([]byte("hello\x00world"))
	str, err := s.PeekStringAt(0)
	if err != nil {
		t.Fatalf("PeekStringAt: %v", err)
	}
	if str != "hello" {
		t.Errorf("PeekStringAt = %q, want %q", str, "hello")
	}
}

func TestPeekStringAtMissingTerminator(t *testing.T) {
	s := New([]byte("noterminator"))
	if _, err := s.PeekStringAt(0); err == nil {
		t.Fatal("expected an error for a string with no NUL terminator")
	}
}

func TestPeekDataBounds(t *testing.T) {
	s := New([]byte{1, 2, 3, 4})
	dst := make([]byte, 2)
	if err := s.PeekData(dst, 1, 2); err != nil {
		t.Fatalf("PeekData: %v", err)
	}
	if dst[0] != 2 || dst[1] != 3 {
		t.Errorf("PeekData = %v, want [2 3]", dst)
	}
	if err := s.PeekData(dst, 3, 2); err == nil {
		t.Fatal("expected OutOfBounds reading past the buffer end")
	}
}

func TestSetPosPermitsOutOfRange(t *testing.T) {
	s := New(make([]byte, 4))
	s.SetPos(100)
	if s.Pos() != 100 {
		t.Errorf("SetPos did not move the cursor out of range")
	}
	var dst [1]byte
	if err := s.ReadData(dst[:], 1); err == nil {
		t.Fatal("expected a failing read from an out-of-range cursor")
	}
}
