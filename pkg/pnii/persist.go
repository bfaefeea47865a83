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

package pnii

import (
	"fmt"
	"io"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/pkg/codec"
	"github.com/vecindex/vecindex/pkg/store"
)

func rebuildBuffer(objects [][]byte) *store.Buffer {
	buf := store.NewBuffer()
	for _, obj := range objects {
		buf.Append(obj)
	}
	return buf
}

// Save persists the pivot set and posting lists (not the objects
// themselves, for the same reason as pkg/hnsw's Save) to w as:
//
//	{magic, version, N, P, K_idx, pivot_ids[P]}
//	per pivot: {length, length x ids}
func (idx *Index) Save(w io.Writer) error {
	header := []uint32{
		codec.PNIIMagic,
		codec.Version,
		uint32(idx.buf.Len()),
		uint32(len(idx.pivotIDs)),
		uint32(idx.cfg.numPivotIndex),
	}
	if err := codec.WriteUint32s(w, header); err != nil {
		return err
	}
	if err := codec.WriteUint32s(w, idx.pivotIDs); err != nil {
		return err
	}
	for _, list := range idx.postings {
		if err := codec.WriteUint32(w, uint32(len(list))); err != nil {
			return err
		}
		if err := codec.WriteUint32s(w, list); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs an Index from a stream produced by Save. objects
// must hold exactly the N encoded objects the index was built from, in
// their original id order. Query-time settings (K_srch, dbScanFrac,
// threshold) are not stored; they come from opts, with K_srch defaulting
// to the stored K_idx, dbScanFrac to 0.1 and threshold to 1.
func Load(r io.Reader, space vecindex.Space, objects [][]byte, opts ...Option) (*Index, error) {
	const path = "pnii index"
	if err := codec.CheckMagicVersion(r, codec.PNIIMagic, path); err != nil {
		return nil, err
	}

	fields, err := codec.ReadUint32s(r, 3, path)
	if err != nil {
		return nil, err
	}
	n, p, kIdx := fields[0], fields[1], fields[2]

	if int(n) != len(objects) {
		return nil, &vecindex.CorruptError{Path: path, Err: fmt.Errorf("pnii: header declares %d objects, got %d", n, len(objects))}
	}

	pivotIDs, err := codec.ReadUint32s(r, int(p), path)
	if err != nil {
		return nil, err
	}

	postings := make([][]uint32, p)
	for i := range postings {
		length, err := codec.ReadUint32(r, path)
		if err != nil {
			return nil, err
		}
		list, err := codec.ReadUint32s(r, int(length), path)
		if err != nil {
			return nil, err
		}
		postings[i] = list
	}

	cfg := config{
		numPivots:      int(p),
		numPivotIndex:  int(kIdx),
		numPivotSearch: int(kIdx),
		dbScanFrac:     0.1,
		threshold:      1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.numPivotSearch > cfg.numPivotIndex {
		cfg.numPivotSearch = cfg.numPivotIndex
	}

	idx := &Index{space: space, cfg: cfg, pivotIDs: pivotIDs, postings: postings}
	idx.buf = rebuildBuffer(objects)
	idx.pivotBytes = make([][]byte, len(pivotIDs))
	for i, pid := range pivotIDs {
		obj, _ := idx.buf.Get(pid)
		idx.pivotBytes[i] = obj
	}

	return idx, nil
}
