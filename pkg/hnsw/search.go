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
	"context"

	"github.com/vecindex/vecindex"
	"github.com/vecindex/vecindex/pkg/heap"
)

// rankDistance scores query against object for provisional candidate
// ranking: it uses space's ProxyDistance if space implements
// vecindex.ProxyDistancer, falling back to DistanceQuery otherwise. It is
// never the final word on a result's distance — Search re-scores whatever
// survives ranking against DistanceQuery before returning it.
func rankDistance(space vecindex.Space, query, object []byte) float32 {
	if p, ok := space.(vecindex.ProxyDistancer); ok {
		return p.ProxyDistance(query, object)
	}
	return space.DistanceQuery(query, object)
}

// Match is a single search result: an object id and its distance to the
// query, ascending by distance.
type Match struct {
	ID   uint32
	Dist float32
}

// SearchOption configures a single call to Search.
type SearchOption func(*searchParams)

type searchParams struct {
	ef int
}

// WithEf overrides the beam width for one search call, in place of the
// index's default efSearch.
func WithEf(ef int) SearchOption {
	return func(p *searchParams) { p.ef = ef }
}

// Search returns up to k nearest neighbors of query. It performs greedy
// descent from the entry point down to layer 1, then a bounded
// best-first beam search at layer 0: the upper layers track a single
// candidate, and only the layer-0 beam (width ef, at least k) supplies
// the returned results.
//
// If ctx is cancelled or its deadline elapses mid-search, Search returns
// the best results found so far and ok=false rather than an error:
// cancellation during a query is not itself a failure (the caller asked
// for a best-effort, time-bounded answer).
func (idx *Index) Search(ctx context.Context, query []byte, k int, opts ...SearchOption) (results []Match, ok bool) {
	params := searchParams{ef: idx.efSearch}
	for _, opt := range opts {
		opt(&params)
	}
	if params.ef < k {
		params.ef = k
	}

	idx.mu.RLock()
	empty := len(idx.nodes) == 0
	idx.mu.RUnlock()
	if empty || k <= 0 {
		return nil, true
	}

	ep := uint32(idx.entryPoint.Load())
	epMaxLayer := idx.maxLayer.Load()

	for l := epMaxLayer; l > 0; l-- {
		if err := ctx.Err(); err != nil {
			obj, _ := idx.Get(ep)
			return []Match{{ID: ep, Dist: idx.space.DistanceQuery(query, obj)}}, false
		}
		ep = idx.greedyDescendQuery(query, ep, l)
	}

	cands, cancelled := idx.searchLayerBeam(ctx, query, ep, params.ef, 0)

	// cands is ranked by rankDistance (a proxy if the Space offers one);
	// re-score every survivor against the real metric before truncating
	// to k, so a cheaper surrogate used during the beam never leaks into
	// the distances returned to the caller.
	h := heap.NewBounded(k)
	for _, c := range cands {
		obj, _ := idx.buf.Get(c.id)
		h.TryPush(heap.Item{ID: c.id, Dist: idx.space.DistanceQuery(query, obj)})
	}
	items := h.DrainSorted()
	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = Match{ID: it.ID, Dist: it.Dist}
	}
	return out, !cancelled
}

// greedyDescendQuery mirrors greedyDescend but scores neighbors with
// rankDistance (the query-time metric, or a cheaper proxy for it), since
// this runs during search rather than during build.
func (idx *Index) greedyDescendQuery(query []byte, entry uint32, level int32) uint32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	current := entry
	curObj, _ := idx.buf.Get(current)
	currentDist := rankDistance(idx.space, query, curObj)

	for {
		improved := false
		n := idx.nodes[current]
		if int32(len(n.neighbors)) <= level {
			break
		}
		for _, nb := range n.neighbors[level] {
			nbObj, _ := idx.buf.Get(nb)
			d := rankDistance(idx.space, query, nbObj)
			if d < currentDist {
				current = nb
				currentDist = d
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return current
}

// searchLayerBeam performs the bounded best-first beam search at level,
// identical in shape to build.go's searchLayer but scoring with
// rankDistance (query-time metric, or a Space's cheaper proxy for it) and
// checking ctx for cancellation between candidate pops, matching
// component G's requirement that a cancellation deadline is observed
// during the layer-0 beam rather than only at entry.
func (idx *Index) searchLayerBeam(ctx context.Context, query []byte, entry uint32, ef int, level int32) ([]candidate, bool) {
	idx.mu.RLock()
	numNodes := len(idx.nodes)
	idx.mu.RUnlock()

	seen := idx.visited.Get()
	defer idx.visited.Put(seen)
	seen.Grow(numNodes)

	entryObj, _ := idx.buf.Get(entry)
	entryDist := rankDistance(idx.space, query, entryObj)
	seen.Mark(entry)

	type heapItem struct {
		id   uint32
		dist float32
	}
	candidates := []heapItem{{entry, entryDist}}
	results := []heapItem{{entry, entryDist}}
	cancelled := false

	popMin := func() heapItem {
		minI := 0
		for i := 1; i < len(candidates); i++ {
			if candidates[i].dist < candidates[minI].dist {
				minI = i
			}
		}
		it := candidates[minI]
		candidates = append(candidates[:minI], candidates[minI+1:]...)
		return it
	}
	worstIdx := func() int {
		worst := 0
		for i := 1; i < len(results); i++ {
			if results[i].dist > results[worst].dist {
				worst = i
			}
		}
		return worst
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for len(candidates) > 0 {
		if err := ctx.Err(); err != nil {
			cancelled = true
			break
		}

		c := popMin()
		if len(results) >= ef {
			w := results[worstIdx()]
			if c.dist > w.dist {
				break
			}
		}

		n := idx.nodes[c.id]
		if int32(len(n.neighbors)) <= level {
			continue
		}
		for _, nb := range n.neighbors[level] {
			if !seen.Mark(nb) {
				continue
			}
			nbObj, _ := idx.buf.Get(nb)
			d := rankDistance(idx.space, query, nbObj)

			if len(results) < ef {
				candidates = append(candidates, heapItem{nb, d})
				results = append(results, heapItem{nb, d})
			} else if w := results[worstIdx()]; d < w.dist {
				candidates = append(candidates, heapItem{nb, d})
				results[worstIdx()] = heapItem{nb, d}
			}
		}
	}

	out := make([]candidate, len(results))
	for i, r := range results {
		out[i] = candidate{id: r.id, dist: r.dist}
	}
	return out, cancelled
}
