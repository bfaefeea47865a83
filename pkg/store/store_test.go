package store

import (
	"bytes"
	"testing"
)

func TestBufferAppendAndGet(t *testing.T) {
	b := NewBuffer()
	id0 := b.Append([]byte("hello"))
	id1 := b.Append([]byte(""))
	id2 := b.Append([]byte("world!"))

	if id0 != 0 || id1 != 1 || id2 != 2 {
		t.Fatalf("ids = %d,%d,%d, want 0,1,2", id0, id1, id2)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	got, err := b.Get(id0)
	if err != nil || !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("Get(0) = %q, %v", got, err)
	}
	got, err = b.Get(id2)
	if err != nil || !bytes.Equal(got, []byte("world!")) {
		t.Fatalf("Get(2) = %q, %v", got, err)
	}

	if _, err := b.Get(99); err != ErrNotFound {
		t.Fatalf("Get(99) err = %v, want ErrNotFound", err)
	}
}

func TestBufferMarshalRoundTrip(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("alpha"))
	b.Append([]byte("b"))
	b.Append([]byte("gamma-ray"))

	encoded, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	b2 := NewBuffer()
	if err := b2.UnmarshalBinary(encoded); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if b2.Len() != b.Len() {
		t.Fatalf("Len() = %d, want %d", b2.Len(), b.Len())
	}
	for id := 0; id < b.Len(); id++ {
		want, _ := b.Get(uint32(id))
		got, err := b2.Get(uint32(id))
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("id %d: got %q, want %q (err %v)", id, got, want, err)
		}
	}
}
