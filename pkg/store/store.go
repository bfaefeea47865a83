// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package store implements the object buffer: an append-only arena that
// assigns each indexed object a stable, dense uint32 id in insertion order
// and holds its opaque byte payload (the encoded vector, sparse signature,
// or fused record the caller chooses to store alongside it).
//
// Buffer is the in-memory, build-time form used while an index is being
// constructed. LevelDBStore (leveldbstore.go) is the optional
// disk-backed variant for datasets that do not fit in memory.
package store

import (
	"encoding/binary"
	"errors"
)

// ErrNotFound is returned when an id has no corresponding object.
var ErrNotFound = errors.New("store: not found")

// ObjectStore is the read-side contract both Buffer and LevelDBStore
// satisfy: fetch an object by its dense id, and report how many objects
// have been stored. Code that only needs to serve objects back out —
// Search's re-rank step, a loader replaying a persisted index — can take
// an ObjectStore instead of committing to one backing implementation;
// code that builds an index still takes a concrete *Buffer or
// *LevelDBStore, since their Append signatures differ (LevelDBStore's can
// fail on a disk write).
type ObjectStore interface {
	Get(id uint32) ([]byte, error)
	Len() int
}

var (
	_ ObjectStore = (*Buffer)(nil)
)

// Buffer is an in-memory object buffer: a growable arena of variable-length
// byte blobs addressed by a dense uint32 id assigned in insertion order.
// It is not safe for concurrent writers; concurrent readers are fine once
// building has finished.
type Buffer struct {
	data    []byte
	offsets []uint32 // offsets[id] is the start of object id; offsets[Len()] is len(data)
}

// NewBuffer creates an empty object buffer.
func NewBuffer() *Buffer {
	return &Buffer{offsets: []uint32{0}}
}

// Append stores obj and returns the id assigned to it. Ids are assigned
// sequentially starting at 0.
func (b *Buffer) Append(obj []byte) uint32 {
	id := uint32(len(b.offsets) - 1)
	b.data = append(b.data, obj...)
	b.offsets = append(b.offsets, uint32(len(b.data)))
	return id
}

// Get returns the stored bytes for id. The returned slice aliases the
// buffer's backing array and must not be modified.
func (b *Buffer) Get(id uint32) ([]byte, error) {
	if int(id) >= b.Len() {
		return nil, ErrNotFound
	}
	return b.data[b.offsets[id]:b.offsets[id+1]], nil
}

// Len returns the number of objects stored.
func (b *Buffer) Len() int { return len(b.offsets) - 1 }

// Bytes returns the total size in bytes of all stored payloads.
func (b *Buffer) Bytes() int { return len(b.data) }

// MarshalBinary encodes the buffer as: count, then count+1 offsets, then
// the raw payload bytes. The index persistence formats in pkg/hnsw and
// pkg/pnii do not call it: they store no object payloads.
func (b *Buffer) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 8+4*len(b.offsets)+len(b.data))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(b.Len()))
	out = append(out, tmp[:]...)
	for _, off := range b.offsets {
		var o [4]byte
		binary.LittleEndian.PutUint32(o[:], off)
		out = append(out, o[:]...)
	}
	out = append(out, b.data...)
	return out, nil
}

// UnmarshalBinary decodes a buffer previously produced by MarshalBinary.
func (b *Buffer) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("store: truncated buffer header")
	}
	count := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	need := int(count+1) * 4
	if len(data) < need {
		return errors.New("store: truncated offset table")
	}
	offsets := make([]uint32, count+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	data = data[need:]
	if uint64(len(data)) < uint64(offsets[count]) {
		return errors.New("store: truncated payload")
	}
	b.offsets = offsets
	b.data = append([]byte(nil), data[:offsets[count]]...)
	return nil
}
