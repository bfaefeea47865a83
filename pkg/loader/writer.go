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

package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer emits the binary fused format a Reader can parse back. It is
// the inverse of Reader, used by tests and by tools that produce this
// format rather than only consuming it.
type Writer struct {
	w     io.Writer
	comps []ComponentDesc
	count uint32
}

// NewWriter writes the stream header (N, C, component descriptors) and
// returns a Writer ready to accept exactly n Write calls.
func NewWriter(w io.Writer, n int, comps []ComponentDesc) (*Writer, error) {
	if err := writeUint32(w, uint32(n)); err != nil {
		return nil, err
	}
	if err := writeUint32(w, uint32(len(comps))); err != nil {
		return nil, err
	}
	for _, c := range comps {
		flag := uint32(0)
		if c.Sparse {
			flag = 1
		}
		if err := writeUint32(w, flag); err != nil {
			return nil, err
		}
		if err := writeUint32(w, uint32(c.Dim)); err != nil {
			return nil, err
		}
	}
	return &Writer{w: w, comps: comps}, nil
}

// Write appends one entry. Entries must be written in id order; rec's
// Components must match the descriptors passed to NewWriter one for one.
func (wr *Writer) Write(rec Record) error {
	if len(rec.Components) != len(wr.comps) {
		return fmt.Errorf("loader: record has %d components, want %d", len(rec.Components), len(wr.comps))
	}

	idBytes := []byte(rec.ExternID)
	if err := writeUint32(wr.w, uint32(len(idBytes))); err != nil {
		return err
	}
	if _, err := wr.w.Write(idBytes); err != nil {
		return err
	}
	if err := writePadding(wr.w, len(idBytes)); err != nil {
		return err
	}

	for i, desc := range wr.comps {
		comp := rec.Components[i]
		if desc.Sparse {
			if comp.Sparse == nil {
				return fmt.Errorf("loader: component %d declared sparse but record has none", i)
			}
			if err := writeUint32(wr.w, uint32(len(comp.Sparse.Indices))); err != nil {
				return err
			}
			for j, idx := range comp.Sparse.Indices {
				if err := writeUint32(wr.w, idx); err != nil {
					return err
				}
				if err := writeFloat32(wr.w, comp.Sparse.Values[j]); err != nil {
					return err
				}
			}
		} else {
			if len(comp.Dense) != desc.Dim {
				return fmt.Errorf("loader: component %d has %d dims, want %d", i, len(comp.Dense), desc.Dim)
			}
			for _, v := range comp.Dense {
				if err := writeFloat32(wr.w, v); err != nil {
					return err
				}
			}
		}
	}

	wr.count++
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeFloat32(w io.Writer, v float32) error {
	return writeUint32(w, math.Float32bits(v))
}

func writePadding(w io.Writer, n int) error {
	pad := (4 - n%4) % 4
	if pad == 0 {
		return nil
	}
	_, err := w.Write(make([]byte, pad))
	return err
}
