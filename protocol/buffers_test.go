package protocol

import (
	"bytes"
	"testing"
)

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})
	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("after Pop(2): %v", buf.Data())
	}
	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Pop past the end left %d bytes", buf.Available())
	}
}

func TestScratchOutput(t *testing.T) {
	s := NewScratchOutput()
	s.Output([]byte{1, 2, 3})
	s.Output([]byte{4, 5})
	s.Update(0, 99)
	s.Update(7, 1) // past the write position, ignored

	if !bytes.Equal(s.Result(), []byte{99, 2, 3, 4, 5}) {
		t.Errorf("unexpected result %v", s.Result())
	}
	if !bytes.Equal(s.DataSince(2), []byte{3, 4, 5}) {
		t.Errorf("DataSince(2) = %v", s.DataSince(2))
	}
	if s.DataSince(6) != nil {
		t.Error("DataSince past the end should be nil")
	}

	s.Reset()
	if s.CurPosition() != 0 {
		t.Errorf("after Reset, position %d", s.CurPosition())
	}

	s.Output(make([]byte, MessageMax+10))
	if s.CurPosition() != MessageMax {
		t.Errorf("overflow not dropped, position %d", s.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	f := NewFifoBuffer(10)
	if n := f.Write(make([]byte, 12)); n != 9 {
		t.Errorf("one slot stays free: wrote %d of 12", n)
	}
	if f.Free() != 0 {
		t.Errorf("expected full buffer, %d free", f.Free())
	}
	f.Pop(20)
	if f.Available() != 0 {
		t.Errorf("Pop past the end left %d bytes", f.Available())
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	f := NewFifoBuffer(5)
	f.Write([]byte{1, 2, 3, 4})
	f.Pop(2)
	if n := f.Write([]byte{5, 6}); n != 2 {
		t.Fatalf("wrote %d bytes, expected 2", n)
	}
	if !bytes.Equal(f.Data(), []byte{3, 4, 5, 6}) {
		t.Errorf("wrapped data %v", f.Data())
	}
	f.Pop(3)
	if !bytes.Equal(f.Data(), []byte{6}) {
		t.Errorf("after Pop(3): %v", f.Data())
	}
}
