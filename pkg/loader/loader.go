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

// Package loader reads the fused sparse+dense object format: a bit-exact
// on-disk contract carried over unchanged because a real query server
// depends on it. Objects are framed as a small text header (per-component
// query/index weights) alongside a binary stream of per-entry component
// records, each either a sparse (index, value) list or a dense float32
// vector.
//
// A Reader satisfies the same external-collaborator contract every
// loader in this system follows: it emits objects with consecutive ids
// starting at 0, and reports a malformed record as a *vecindex.FormatError
// naming the entry ("line") at which parsing failed.
package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vecindex/vecindex"
)

// ComponentDesc describes one of the C components every entry carries:
// whether it is sparse, and its dense dimensionality (unused for sparse
// components).
type ComponentDesc struct {
	Sparse bool
	Dim    int
}

// SparseVector is a sparse component: strictly ascending indices paired
// with their values.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Component is one entry's value for a single component slot: exactly
// one of Sparse or Dense is set, matching that slot's ComponentDesc.
type Component struct {
	Sparse *SparseVector
	Dense  []float32
}

// Record is a single loaded object.
type Record struct {
	ID         uint32
	ExternID   string
	Components []Component
}

// Header holds the per-component weight vectors read from the
// accompanying text file ("queryWeights: ..." / "indexWeights: ...").
type Header struct {
	QueryWeights []float32
	IndexWeights []float32
}

// ParseHeader reads the two-line weights header.
func ParseHeader(r io.Reader) (Header, error) {
	var h Header
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			return h, &vecindex.FormatError{Context: fmt.Sprintf("header line %d", lineNo), Err: fmt.Errorf("missing ':' separator")}
		}
		weights, err := parseWeights(rest)
		if err != nil {
			return h, &vecindex.FormatError{Context: fmt.Sprintf("header line %d", lineNo), Err: err}
		}
		switch strings.TrimSpace(key) {
		case "queryWeights":
			h.QueryWeights = weights
		case "indexWeights":
			h.IndexWeights = weights
		default:
			return h, &vecindex.FormatError{Context: fmt.Sprintf("header line %d", lineNo), Err: fmt.Errorf("unknown key %q", key)}
		}
	}
	if err := scanner.Err(); err != nil {
		return h, &vecindex.FormatError{Context: "header", Err: err}
	}
	return h, nil
}

func parseWeights(s string) ([]float32, error) {
	fields := strings.Fields(s)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", f, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// WriteHeader writes the two-line weights header in the format ParseHeader
// expects.
func WriteHeader(w io.Writer, h Header) error {
	if err := writeWeightLine(w, "queryWeights", h.QueryWeights); err != nil {
		return err
	}
	return writeWeightLine(w, "indexWeights", h.IndexWeights)
}

func writeWeightLine(w io.Writer, key string, weights []float32) error {
	parts := make([]string, len(weights))
	for i, v := range weights {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", key, strings.Join(parts, " "))
	return err
}

// Reader streams Records from the binary fused format.
type Reader struct {
	r      io.Reader
	n      int
	comps  []ComponentDesc
	nextID uint32
}

// NewReader reads the binary stream's N/C header and per-component
// descriptors, then returns a Reader positioned at the first entry.
func NewReader(r io.Reader) (*Reader, error) {
	n, err := readUint32(r, "stream header")
	if err != nil {
		return nil, err
	}
	c, err := readUint32(r, "stream header")
	if err != nil {
		return nil, err
	}
	comps := make([]ComponentDesc, c)
	for i := range comps {
		flag, err := readUint32(r, fmt.Sprintf("component descriptor %d", i))
		if err != nil {
			return nil, err
		}
		dim, err := readUint32(r, fmt.Sprintf("component descriptor %d", i))
		if err != nil {
			return nil, err
		}
		comps[i] = ComponentDesc{Sparse: flag != 0, Dim: int(dim)}
	}
	return &Reader{r: r, n: int(n), comps: comps}, nil
}

// N returns the total entry count declared by the stream header.
func (rd *Reader) N() int { return rd.n }

// Components returns the component descriptors declared by the stream
// header.
func (rd *Reader) Components() []ComponentDesc { return rd.comps }

// Next reads the next Record, assigning it the next consecutive id
// starting at 0. It returns io.EOF once N records have been read.
func (rd *Reader) Next() (Record, error) {
	if int(rd.nextID) >= rd.n {
		return Record{}, io.EOF
	}
	entryCtx := fmt.Sprintf("entry %d", rd.nextID)

	idLen, err := readUint32(rd.r, entryCtx)
	if err != nil {
		return Record{}, err
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(rd.r, idBytes); err != nil {
		return Record{}, &vecindex.FormatError{Context: entryCtx, Err: err}
	}
	if err := skipPadding(rd.r, int(idLen)); err != nil {
		return Record{}, &vecindex.FormatError{Context: entryCtx, Err: err}
	}

	rec := Record{ID: rd.nextID, ExternID: string(idBytes), Components: make([]Component, len(rd.comps))}
	for i, desc := range rd.comps {
		if desc.Sparse {
			qty, err := readUint32(rd.r, entryCtx)
			if err != nil {
				return Record{}, err
			}
			indices := make([]uint32, qty)
			values := make([]float32, qty)
			for j := uint32(0); j < qty; j++ {
				idx, err := readUint32(rd.r, entryCtx)
				if err != nil {
					return Record{}, err
				}
				val, err := readFloat32(rd.r, entryCtx)
				if err != nil {
					return Record{}, err
				}
				if j > 0 && idx <= indices[j-1] {
					return Record{}, &vecindex.FormatError{Context: entryCtx, Err: fmt.Errorf("sparse indices not strictly ascending")}
				}
				indices[j] = idx
				values[j] = val
			}
			rec.Components[i] = Component{Sparse: &SparseVector{Indices: indices, Values: values}}
		} else {
			dense := make([]float32, desc.Dim)
			for j := range dense {
				v, err := readFloat32(rd.r, entryCtx)
				if err != nil {
					return Record{}, err
				}
				dense[j] = v
			}
			rec.Components[i] = Component{Dense: dense}
		}
	}

	rd.nextID++
	return rec, nil
}

func readUint32(r io.Reader, ctx string) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &vecindex.FormatError{Context: ctx, Err: err}
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readFloat32(r io.Reader, ctx string) (float32, error) {
	v, err := readUint32(r, ctx)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// skipPadding consumes the zero bytes inserted so the next component
// begins on a 4-byte boundary, given that n bytes have just been read.
func skipPadding(r io.Reader, n int) error {
	pad := (4 - n%4) % 4
	if pad == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, int64(pad))
	return err
}
