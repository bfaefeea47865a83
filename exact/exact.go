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

// Package exact implements a brute-force nearest-neighbor oracle: O(n)
// linear scan over every stored object, used as the 100%-recall baseline
// that pkg/hnsw and pkg/pnii are measured against (spec property P8), and
// as a small-dataset index in its own right when approximate search isn't
// worth the bookkeeping.
package exact

import (
	"sync"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/pkg/heap"
	"github.com/vecindex/vecindex/pkg/store"
)

// Index is a brute-force nearest-neighbor index over a vecindex.Space.
type Index struct {
	space vecindex.Space
	mu    sync.RWMutex
	buf   *store.Buffer
}

// New creates an empty exact index over space.
func New(space vecindex.Space) *Index {
	return &Index{space: space, buf: store.NewBuffer()}
}

// Add appends an encoded object and returns the id assigned to it.
func (idx *Index) Add(object []byte) uint32 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.buf.Append(object)
}

// Get returns the encoded object stored under id.
func (idx *Index) Get(id uint32) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.buf.Get(id)
}

// Len returns the number of indexed objects.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.buf.Len()
}

// Match is a single search result: an object id and its distance to the
// query, ascending by distance.
type Match struct {
	ID   uint32
	Dist float32
}

// Search returns the k nearest objects to query, scored by
// space.DistanceQuery, exactly — every stored object is examined.
func (idx *Index) Search(query []byte, k int) []Match {
	if k <= 0 {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := idx.buf.Len()
	h := heap.NewBounded(k)
	for id := 0; id < n; id++ {
		obj, _ := idx.buf.Get(uint32(id))
		dist := idx.space.DistanceQuery(query, obj)
		h.TryPush(heap.Item{Dist: dist, ID: uint32(id)})
	}

	items := h.DrainSorted()
	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = Match{ID: it.ID, Dist: it.Dist}
	}
	return out
}
