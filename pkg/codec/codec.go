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

// Package codec holds the on-disk framing shared by pkg/hnsw's and
// pkg/pnii's persistence: magic numbers, the current format version, and
// small io.Writer/io.Reader helpers that wrap encoding/binary with the
// structural error types pkg/hnsw and pkg/pnii surface to callers.
//
// Each index type owns its own Save/Load (hnsw.Index.Save/hnsw.Load,
// pnii.Index.Save/pnii.Load) rather than this package reaching into
// their internals; codec supplies only the common low-level plumbing.
package codec

import (
	"encoding/binary"
	"io"

	"github.com/vecindex/vecindex"
)

// Magic numbers identifying each persisted file kind. Loaders reject any
// file whose magic does not match.
const (
	HNSWMagic uint32 = 0x484e5357 // "HNSW"
	PNIIMagic uint32 = 0x504e4949 // "PNII"
)

// Version is the current on-disk format version for both file kinds.
// A loader must reject any file whose stored version differs, since
// version changes are backward-incompatible.
const Version uint32 = 1

// WriteUint32 writes a single little-endian uint32 field.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteUint32s writes a slice of little-endian uint32 fields back to back,
// with no length prefix (callers write the count separately).
func WriteUint32s(w io.Writer, vs []uint32) error {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	_, err := w.Write(buf)
	return err
}

// ReadUint32 reads a single little-endian uint32 field, reporting a
// CorruptError tagged with path if the stream is truncated.
func ReadUint32(r io.Reader, path string) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &vecindex.CorruptError{Path: path, Err: err}
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint32s reads n little-endian uint32 fields back to back.
func ReadUint32s(r io.Reader, n int, path string) ([]uint32, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &vecindex.CorruptError{Path: path, Err: err}
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

// CheckMagicVersion reads and validates a file's magic and version
// fields, returning a CorruptError if either does not match.
func CheckMagicVersion(r io.Reader, wantMagic uint32, path string) error {
	magic, err := ReadUint32(r, path)
	if err != nil {
		return err
	}
	if magic != wantMagic {
		return &vecindex.CorruptError{Path: path, Err: errMismatch("magic")}
	}
	version, err := ReadUint32(r, path)
	if err != nil {
		return err
	}
	if version != Version {
		return &vecindex.CorruptError{Path: path, Err: errMismatch("version")}
	}
	return nil
}

type mismatchError string

func (e mismatchError) Error() string { return string(e) + " mismatch" }

func errMismatch(field string) error { return mismatchError(field) }
