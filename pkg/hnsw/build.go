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
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vecindex/vecindex"
	"golang.org/x/sync/errgroup"

	"github.com/vecindex/vecindex/pkg/store"
	"github.com/vecindex/vecindex/pkg/visited"
)

// Option configures an Index.
type Option func(*Index)

// WithM sets the target out-degree on upper layers (M). Layer 0's target
// out-degree (M0) defaults to 2*M unless overridden by WithM0.
// Default: 16.
func WithM(m int) Option {
	return func(idx *Index) {
		idx.m = m
		idx.m0 = m * 2
	}
}

// WithM0 overrides layer 0's target out-degree independently of M.
func WithM0(m0 int) Option {
	return func(idx *Index) { idx.m0 = m0 }
}

// WithEfConstruction sets the beam width used while building. Default: 200.
func WithEfConstruction(ef int) Option {
	return func(idx *Index) { idx.efConstruction = ef }
}

// WithEfSearch sets the default beam width used while searching, when a
// query does not request a specific ef. Default: 50.
func WithEfSearch(ef int) Option {
	return func(idx *Index) { idx.efSearch = ef }
}

// WithSeed fixes the seed used to derive each node's top layer, for
// reproducible builds. The level assigned to a given node id is a pure
// function of (seed, id), so builds are reproducible even when objects
// are inserted concurrently via BuildAll and ids are assigned in a
// different relative order across runs.
func WithSeed(seed uint64) Option {
	return func(idx *Index) { idx.seed = seed }
}

// WithHeuristicExtendCandidates controls whether the neighbor-selection
// heuristic, after scanning all candidates, fills any remaining slots
// from the rejected candidates in ascending distance order. Default: on,
// matching the documented default behavior.
func WithHeuristicExtendCandidates(enabled bool) Option {
	return func(idx *Index) { idx.heuristicExtend = enabled }
}

// WithParallelism bounds the number of goroutines BuildAll uses to insert
// objects concurrently. Default: runtime-determined by errgroup (no
// explicit cap beyond the number of objects).
func WithParallelism(n int) Option {
	return func(idx *Index) { idx.parallelism = n }
}

// Index is a Hierarchical Navigable Small World graph index over a
// vecindex.Space.
type Index struct {
	space vecindex.Space

	m, m0          int
	efConstruction int
	efSearch       int
	levelMult      float64
	heuristicExtend bool
	parallelism    int

	mu         sync.RWMutex
	buf        *store.Buffer
	nodes      []*node
	entryPoint atomic.Int64 // index into nodes, or -1 when empty
	maxLayer   atomic.Int32

	seed uint64

	visited *visited.Pool
}

// New creates an empty HNSW index over space.
func New(space vecindex.Space, opts ...Option) *Index {
	idx := &Index{
		space:           space,
		m:               16,
		m0:              32,
		efConstruction:  200,
		efSearch:        50,
		heuristicExtend: true,
		buf:             store.NewBuffer(),
		seed:            randomSeed(),
	}
	idx.entryPoint.Store(-1)
	idx.maxLayer.Store(-1)
	for _, opt := range opts {
		opt(idx)
	}
	idx.levelMult = 1.0 / math.Log(float64(idx.m))
	idx.visited = visited.NewPool(0)
	return idx
}

// randomSeed draws a seed from the OS CSPRNG for the (common) case where
// the caller doesn't need reproducible builds and never supplies
// WithSeed.
func randomSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Len returns the number of objects indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Get returns the encoded object stored under id.
func (idx *Index) Get(id uint32) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.buf.Get(id)
}

// randomLevel deterministically derives node id's top layer from the
// index's seed by hashing (seed, id, nonce) with xxhash and mapping the
// result to a uniform draw in (0, 1); nonce only advances in the
// vanishingly unlikely case the hash lands exactly on zero.
func (idx *Index) randomLevel(id uint32) int32 {
	var buf [20]byte
	binary.LittleEndian.PutUint64(buf[0:8], idx.seed)
	binary.LittleEndian.PutUint32(buf[8:12], id)

	var nonce uint64
	var r float64
	for {
		binary.LittleEndian.PutUint64(buf[12:20], nonce)
		h := xxhash.Sum64(buf[:])
		r = float64(h>>11) / float64(1<<53)
		if r > 0 {
			break
		}
		nonce++
	}
	return int32(math.Floor(-math.Log(r) * idx.levelMult))
}

func (idx *Index) maxConn(level int32) int {
	if level == 0 {
		return idx.m0
	}
	return idx.m
}

// Add inserts object into the index and returns the id assigned to it.
// Add is safe to call concurrently; concurrent inserts coordinate through
// per-node spinlocks on the nodes whose edges they mutate (spec's
// concurrency discipline for the graph store).
func (idx *Index) Add(object []byte) (uint32, error) {
	idx.mu.Lock()
	id := idx.buf.Append(object)
	level := idx.randomLevel(id)
	n := &node{
		topLayer:  level,
		neighbors: make([][]uint32, level+1),
	}
	idx.nodes = append(idx.nodes, n)
	idx.visited.Grow(len(idx.nodes))
	isFirst := len(idx.nodes) == 1
	idx.mu.Unlock()

	if isFirst {
		idx.entryPoint.Store(int64(id))
		idx.maxLayer.Store(level)
		return id, nil
	}

	ep := uint32(idx.entryPoint.Load())
	epMaxLayer := idx.maxLayer.Load()

	for l := epMaxLayer; l > level; l-- {
		ep = idx.greedyDescend(object, ep, l)
	}

	startLevel := level
	if epMaxLayer < startLevel {
		startLevel = epMaxLayer
	}
	for l := startLevel; l >= 0; l-- {
		candidates := idx.searchLayer(object, ep, idx.efConstruction, l)
		if len(candidates) == 0 {
			continue
		}
		m := idx.maxConn(l)
		selected := idx.selectNeighborsHeuristic(object, candidates, m)

		idx.mu.RLock()
		for _, c := range selected {
			idx.connect(id, c.id, l)
			idx.connect(c.id, id, l)
			if idx.neighborCount(c.id, l) > m {
				idx.shrink(c.id, l, m)
			}
		}
		idx.mu.RUnlock()

		ep = candidates[0].id
	}

	if level > epMaxLayer {
		idx.maxLayer.Store(level)
		idx.entryPoint.Store(int64(id))
	}

	return id, nil
}

// connect adds a single-direction edge from -> to at level, without
// checking capacity (capacity is enforced separately via shrink). Caller
// must hold idx.mu for reading (graph shape is stable) and must not hold
// any node lock: connect takes and releases the "from" node's lock
// itself, and never locks the "to" node.
func (idx *Index) connect(from, to uint32, level int32) {
	fromNode := idx.nodes[from]
	fromNode.lock.Lock()
	if int32(len(fromNode.neighbors)) <= level {
		fromNode.lock.Unlock()
		return
	}
	for _, existing := range fromNode.neighbors[level] {
		if existing == to {
			fromNode.lock.Unlock()
			return
		}
	}
	fromNode.neighbors[level] = append(fromNode.neighbors[level], to)
	fromNode.lock.Unlock()
}

// neighborCount returns the current size of id's neighbor list at level,
// taking id's own lock for the read.
func (idx *Index) neighborCount(id uint32, level int32) int {
	n := idx.nodes[id]
	n.lock.Lock()
	defer n.lock.Unlock()
	if int32(len(n.neighbors)) <= level {
		return 0
	}
	return len(n.neighbors[level])
}

// shrink reduces node id's neighbor list at level back down to maxConn
// using the neighbor-selection heuristic, then removes the matching
// reverse edge from every neighbor the heuristic drops, so an edge never
// survives in only one direction. It takes each node's lock in turn and
// never holds two at once, so it is safe to call without the caller
// holding id's lock.
func (idx *Index) shrink(id uint32, level int32, maxConn int) {
	n := idx.nodes[id]
	obj, _ := idx.buf.Get(id)

	n.lock.Lock()
	current := append([]uint32(nil), n.neighbors[level]...)
	n.lock.Unlock()

	cands := make([]candidate, len(current))
	for i, nb := range current {
		nbObj, _ := idx.buf.Get(nb)
		cands[i] = candidate{id: nb, dist: idx.space.DistanceIndex(obj, nbObj)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	selected := idx.selectNeighborsHeuristic(obj, cands, maxConn)

	kept := make(map[uint32]bool, len(selected))
	keptIDs := make([]uint32, len(selected))
	for i, c := range selected {
		kept[c.id] = true
		keptIDs[i] = c.id
	}

	n.lock.Lock()
	n.neighbors[level] = keptIDs
	n.lock.Unlock()

	for _, nb := range current {
		if !kept[nb] {
			idx.disconnect(nb, id, level)
		}
	}
}

// disconnect removes the edge to -> (if present) from node from's
// neighbor list at level, taking only from's lock.
func (idx *Index) disconnect(from, to uint32, level int32) {
	fromNode := idx.nodes[from]
	fromNode.lock.Lock()
	defer fromNode.lock.Unlock()
	if int32(len(fromNode.neighbors)) <= level {
		return
	}
	nbs := fromNode.neighbors[level]
	for i, existing := range nbs {
		if existing == to {
			fromNode.neighbors[level] = append(nbs[:i], nbs[i+1:]...)
			return
		}
	}
}

// candidate pairs a node id with its distance to some reference object.
type candidate struct {
	id   uint32
	dist float32
}

// greedyDescend performs single-candidate greedy descent at level,
// starting from entry, and returns the locally closest node to query.
func (idx *Index) greedyDescend(query []byte, entry uint32, level int32) uint32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	current := entry
	curObj, _ := idx.buf.Get(current)
	currentDist := idx.space.DistanceIndex(query, curObj)

	for {
		improved := false
		n := idx.nodes[current]
		if int32(len(n.neighbors)) <= level {
			break
		}
		for _, nb := range n.neighbors[level] {
			nbObj, _ := idx.buf.Get(nb)
			d := idx.space.DistanceIndex(query, nbObj)
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

// searchLayer performs a bounded best-first search at level starting
// from entry, returning up to ef candidates sorted ascending by
// distance to query.
func (idx *Index) searchLayer(query []byte, entry uint32, ef int, level int32) []candidate {
	idx.mu.RLock()
	numNodes := len(idx.nodes)
	idx.mu.RUnlock()

	seen := visited.NewSet(numNodes)
	entryObj, _ := idx.buf.Get(entry)
	entryDist := idx.space.DistanceIndex(query, entryObj)
	seen.Mark(entry)

	type heapItem struct {
		id   uint32
		dist float32
	}
	// candidates: min-heap by dist; results: bounded max-heap via a
	// simple slice since ef is typically small and this runs per layer
	// per insertion (kept intentionally simple rather than importing
	// pkg/heap's id-tie-break variant, which is for top-k query results).
	candidates := []heapItem{{entry, entryDist}}
	results := []heapItem{{entry, entryDist}}

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
			d := idx.space.DistanceIndex(query, nbObj)

			if len(results) < ef {
				candidates = append(candidates, heapItem{nb, d})
				results = append(results, heapItem{nb, d})
			} else if w := results[worstIdx()]; d < w.dist {
				candidates = append(candidates, heapItem{nb, d})
				results[worstIdx()] = heapItem{nb, d}
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
	out := make([]candidate, len(results))
	for i, r := range results {
		out[i] = candidate{id: r.id, dist: r.dist}
	}
	return out
}

// selectNeighborsHeuristic implements the diversity-favoring
// neighbor-selection heuristic: scan candidates ascending by distance to
// query, admitting c only if it is closer to query than to every
// already-admitted neighbor. If fewer than m are admitted this way and
// heuristicExtend is enabled, fill remaining slots from the rejects in
// ascending distance order.
func (idx *Index) selectNeighborsHeuristic(query []byte, candidates []candidate, m int) []candidate {
	if len(candidates) <= m && idx.heuristicExtend {
		return candidates
	}

	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].dist < sorted[j].dist })

	var result []candidate
	var rejected []candidate

	for _, c := range sorted {
		if len(result) >= m {
			break
		}
		cObj, _ := idx.buf.Get(c.id)
		admit := true
		for _, r := range result {
			rObj, _ := idx.buf.Get(r.id)
			if idx.space.DistanceIndex(cObj, rObj) <= c.dist {
				admit = false
				break
			}
		}
		if admit {
			result = append(result, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	if len(result) < m && idx.heuristicExtend {
		for _, c := range rejected {
			if len(result) >= m {
				break
			}
			result = append(result, c)
		}
	}

	return result
}

// BuildAll inserts every object in objects, fanning out across up to
// idx.parallelism goroutines (unbounded if parallelism is 0), matching
// the spec's "work is distributed as per-object insertion tasks"
// scheduling model. It returns the assigned ids in input order, or the
// first fatal error encountered (a distance failure is fatal per
// component F's failure semantics); remaining in-flight insertions are
// allowed to finish since each insertion is all-or-nothing under its own
// node lock.
func (idx *Index) BuildAll(ctx context.Context, objects [][]byte) ([]uint32, error) {
	ids := make([]uint32, len(objects))
	g, ctx := errgroup.WithContext(ctx)
	if idx.parallelism > 0 {
		g.SetLimit(idx.parallelism)
	}
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := idx.Add(obj)
			if err != nil {
				return fmt.Errorf("hnsw: insert object %d: %w", i, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}
