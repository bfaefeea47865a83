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
	"math"
	"sort"
	"sync"

	"github.com/vecindex/vecindex/pkg/heap"
)

// Match is a single search result: an object id and its distance to the
// query, ascending by distance.
type Match struct {
	ID   uint32
	Dist float32
}

// accumulator is a sparse per-id counter reused across queries via a
// generation counter, the same trick pkg/visited uses for boolean
// membership: an id's count is only meaningful while its stamp matches
// the current generation, so resetting for the next query is O(1)
// regardless of how many ids were touched previously.
type accumulator struct {
	gen    uint32
	stamp  []uint32
	counts []int32
}

func newAccumulator(n int) *accumulator {
	return &accumulator{stamp: make([]uint32, n), counts: make([]int32, n)}
}

func (a *accumulator) reset() {
	a.gen++
	if a.gen != 0 {
		return
	}
	for i := range a.stamp {
		a.stamp[i] = 0
	}
	a.gen = 1
}

func (a *accumulator) incr(id uint32) {
	if a.stamp[id] != a.gen {
		a.stamp[id] = a.gen
		a.counts[id] = 0
	}
	a.counts[id]++
}

func (a *accumulator) get(id uint32) int32 {
	if a.stamp[id] != a.gen {
		return 0
	}
	return a.counts[id]
}

// accPool lends accumulators sized for the index's id space.
type accPool struct {
	n    int
	pool sync.Pool
}

func newAccPool(n int) *accPool {
	p := &accPool{n: n}
	p.pool.New = func() any { return newAccumulator(p.n) }
	return p
}

func (p *accPool) get() *accumulator {
	a := p.pool.Get().(*accumulator)
	a.reset()
	return a
}

func (p *accPool) put(a *accumulator) { p.pool.Put(a) }

// Search returns up to k nearest neighbors of query by the PNII
// candidate-then-rerank plan: rank pivots by distance to query, pool
// the postings of the K_srch closest, keep candidates meeting the
// shared-pivot threshold, highest count first (ties broken by id), up to
// a cap of ceil(dbScanFrac*N) raised to k when smaller, then re-rank the
// survivors by true distance.
func (idx *Index) Search(query []byte, k int) []Match {
	if idx.buf.Len() == 0 || k <= 0 {
		return nil
	}

	rankedPivots := idx.closestPivots(query, idx.cfg.numPivotSearch, idx.distanceQueryToPivot)

	idx.accOnce.Do(func() { idx.accPool = newAccPool(idx.buf.Len()) })
	acc := idx.accPool.get()
	defer idx.accPool.put(acc)

	for _, p := range rankedPivots {
		for _, id := range idx.postings[p] {
			acc.incr(id)
		}
	}

	type counted struct {
		id    uint32
		count int32
	}
	var candidates []counted
	seen := make(map[uint32]bool)
	for _, p := range rankedPivots {
		for _, id := range idx.postings[p] {
			if seen[id] {
				continue
			}
			seen[id] = true
			if c := acc.get(id); c >= int32(idx.cfg.threshold) {
				candidates = append(candidates, counted{id, c})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].id < candidates[j].id
	})

	scanCap := int(math.Ceil(idx.cfg.dbScanFrac * float64(idx.buf.Len())))
	if scanCap < k {
		scanCap = k
	}
	if scanCap > len(candidates) {
		scanCap = len(candidates)
	}
	candidates = candidates[:scanCap]

	h := heap.NewBounded(k)
	for _, c := range candidates {
		obj, _ := idx.buf.Get(c.id)
		dist := idx.space.DistanceQuery(query, obj)
		h.TryPush(heap.Item{ID: c.id, Dist: dist})
	}

	items := h.DrainSorted()
	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = Match{ID: it.ID, Dist: it.Dist}
	}
	return out
}

// CandidateCount returns the raw shared-pivot count the query planner
// would compute for id against query, for testing property P6 directly.
func (idx *Index) CandidateCount(query []byte, id uint32) int {
	rankedPivots := idx.closestPivots(query, idx.cfg.numPivotSearch, idx.distanceQueryToPivot)
	count := 0
	for _, p := range rankedPivots {
		if idx.InPrefix(p, id) {
			count++
		}
	}
	return count
}
