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

package hnsw

import (
	"fmt"
	"io"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/pkg/codec"
	"github.com/vecindex/vecindex/pkg/visited"
)

func errObjectCountMismatch(headerN uint32, gotN int) error {
	return fmt.Errorf("hnsw: header declares %d objects, got %d", headerN, gotN)
}

// Save persists the graph structure (not the objects themselves — the
// object buffer is supplied again by the caller at Load time, matching
// the spec's separation between the index structure and the external
// object source it was built from) to w as:
//
//	{magic, version, N, M, M0, efConstruction, entry_point, max_layer}
//	per node: {id, top_layer, for each layer l in [0, top_layer]: degree, degree x neighbor_ids}
func (idx *Index) Save(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.nodes)
	entryPoint := idx.entryPoint.Load()
	if entryPoint < 0 {
		entryPoint = 0
	}

	header := []uint32{
		codec.HNSWMagic,
		codec.Version,
		uint32(n),
		uint32(idx.m),
		uint32(idx.m0),
		uint32(idx.efConstruction),
		uint32(entryPoint),
		uint32(idx.maxLayer.Load()),
	}
	if err := codec.WriteUint32s(w, header); err != nil {
		return err
	}

	for id, nd := range idx.nodes {
		if err := codec.WriteUint32s(w, []uint32{uint32(id), uint32(nd.topLayer)}); err != nil {
			return err
		}
		for l := int32(0); l <= nd.topLayer; l++ {
			neighbors := nd.neighbors[l]
			if err := codec.WriteUint32(w, uint32(len(neighbors))); err != nil {
				return err
			}
			if err := codec.WriteUint32s(w, neighbors); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reconstructs an Index from a stream produced by Save. objects
// must hold exactly the N encoded objects the index was built from, in
// their original id order; Load rejects a mismatched count or a version
// that does not match the format this build understands.
func Load(r io.Reader, space vecindex.Space, objects [][]byte, opts ...Option) (*Index, error) {
	const path = "hnsw index"
	if err := codec.CheckMagicVersion(r, codec.HNSWMagic, path); err != nil {
		return nil, err
	}

	fields, err := codec.ReadUint32s(r, 6, path)
	if err != nil {
		return nil, err
	}
	n, m, m0, efConstruction, entryPoint, maxLayer := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	if int(n) != len(objects) {
		return nil, &vecindex.CorruptError{Path: path, Err: errObjectCountMismatch(n, len(objects))}
	}

	idx := New(space, append([]Option{WithM(int(m)), WithM0(int(m0)), WithEfConstruction(int(efConstruction))}, opts...)...)
	idx.nodes = make([]*node, n)
	for _, obj := range objects {
		idx.buf.Append(obj)
	}

	for i := uint32(0); i < n; i++ {
		rec, err := codec.ReadUint32s(r, 2, path)
		if err != nil {
			return nil, err
		}
		id, topLayer := rec[0], int32(rec[1])
		if int(id) >= int(n) {
			return nil, &vecindex.CorruptError{Path: path, Err: errObjectCountMismatch(n, len(objects))}
		}

		nd := &node{topLayer: topLayer, neighbors: make([][]uint32, topLayer+1)}
		for l := int32(0); l <= topLayer; l++ {
			degree, err := codec.ReadUint32(r, path)
			if err != nil {
				return nil, err
			}
			neighbors, err := codec.ReadUint32s(r, int(degree), path)
			if err != nil {
				return nil, err
			}
			nd.neighbors[l] = neighbors
		}
		idx.nodes[id] = nd
	}

	idx.entryPoint.Store(int64(entryPoint))
	idx.maxLayer.Store(int32(maxLayer))
	idx.visited = visited.NewPool(int(n))
	return idx, nil
}
