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
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/vecindex/vecindex"
	"golang.org/x/sync/errgroup"

	"github.com/vecindex/vecindex/pkg/store"
)

// Option configures an Index at construction time.
type Option func(*config)

type config struct {
	numPivots      int
	numPivotIndex  int
	numPivotSearch int
	dbScanFrac     float64
	threshold      int
	parallelism    int
	rng            *rand.Rand
}

// WithNumPivots sets P, the number of pivots sampled at build time.
// Default: 64.
func WithNumPivots(p int) Option { return func(c *config) { c.numPivots = p } }

// WithNumPivotIndex sets K_idx, the number of closest pivots recorded
// per object at index time (1 <= K_idx <= P). Default: 8.
func WithNumPivotIndex(k int) Option { return func(c *config) { c.numPivotIndex = k } }

// WithNumPivotSearch sets K_srch, the number of closest pivots consulted
// per query (K_srch <= K_idx). Default: 4.
func WithNumPivotSearch(k int) Option { return func(c *config) { c.numPivotSearch = k } }

// WithDBScanFrac sets the fraction of N used to cap the candidate set
// before re-ranking. Default: 0.1.
func WithDBScanFrac(frac float64) Option { return func(c *config) { c.dbScanFrac = frac } }

// WithThreshold sets the minimum shared-pivot count a candidate must
// reach to be considered. Default: 1 (any shared pivot qualifies).
func WithThreshold(n int) Option { return func(c *config) { c.threshold = n } }

// WithSeed fixes the PRNG used to sample pivots, for reproducible
// builds.
func WithSeed(seed int64) Option {
	return func(c *config) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithParallelism bounds the number of goroutines used to compute
// per-object pivot prefixes during New. Default: unbounded.
func WithParallelism(n int) Option { return func(c *config) { c.parallelism = n } }

// Index is a Pivot-Neighborhood Inverted Index over a vecindex.Space.
// Unlike pkg/hnsw, it is built once from a complete object set: the
// pivot sample requires N to be known up front, and postings are
// immutable once New returns.
type Index struct {
	space vecindex.Space
	buf   *store.Buffer
	cfg   config

	pivotIDs   []uint32
	pivotBytes [][]byte

	// postings[p] holds, in ascending object-id order, every object
	// whose K_idx closest pivots include pivot p.
	postings [][]uint32

	accOnce sync.Once
	accPool *accPool
}

// New builds a PNII index over objects (already-encoded byte blobs,
// e.g. vector.Encode output).
func New(ctx context.Context, space vecindex.Space, objects [][]byte, opts ...Option) (*Index, error) {
	cfg := config{
		numPivots:      64,
		numPivotIndex:  8,
		numPivotSearch: 4,
		dbScanFrac:     0.1,
		threshold:      1,
		rng:            rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.numPivotIndex > cfg.numPivots {
		cfg.numPivotIndex = cfg.numPivots
	}
	if cfg.numPivotSearch > cfg.numPivotIndex {
		cfg.numPivotSearch = cfg.numPivotIndex
	}

	buf := store.NewBuffer()
	for _, obj := range objects {
		buf.Append(obj)
	}
	n := buf.Len()

	idx := &Index{space: space, buf: buf, cfg: cfg}
	if n == 0 {
		return idx, nil
	}

	pivotIdx := samplePivots(n, cfg.numPivots, cfg.rng)
	idx.pivotIDs = pivotIdx
	idx.pivotBytes = make([][]byte, len(pivotIdx))
	for i, pid := range pivotIdx {
		obj, _ := buf.Get(pid)
		idx.pivotBytes[i] = obj
	}

	postingLocks := make([]sync.Mutex, len(pivotIdx))
	postings := make([][]uint32, len(pivotIdx))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.parallelism > 0 {
		g.SetLimit(cfg.parallelism)
	}
	for id := 0; id < n; id++ {
		id := uint32(id)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obj, _ := buf.Get(id)
			prefix := idx.closestPivots(obj, cfg.numPivotIndex, idx.distanceIndexToPivot)
			for _, p := range prefix {
				postingLocks[p].Lock()
				postings[p] = append(postings[p], id)
				postingLocks[p].Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for p := range postings {
		sort.Slice(postings[p], func(i, j int) bool { return postings[p][i] < postings[p][j] })
	}
	idx.postings = postings

	return idx, nil
}

// Len returns the number of indexed objects.
func (idx *Index) Len() int { return idx.buf.Len() }

// Get returns the encoded object stored under id.
func (idx *Index) Get(id uint32) ([]byte, error) { return idx.buf.Get(id) }

func (idx *Index) distanceIndexToPivot(pivot int, object []byte) float32 {
	return idx.space.DistanceIndex(idx.pivotBytes[pivot], object)
}

func (idx *Index) distanceQueryToPivot(pivot int, query []byte) float32 {
	return idx.space.DistanceQuery(query, idx.pivotBytes[pivot])
}

// closestPivots returns the indices (into idx.pivotIDs) of the k pivots
// closest to object under dist, ascending by distance.
func (idx *Index) closestPivots(object []byte, k int, dist func(pivot int, object []byte) float32) []int {
	type scored struct {
		pivot int
		d     float32
	}
	all := make([]scored, len(idx.pivotIDs))
	for i := range idx.pivotIDs {
		all[i] = scored{i, dist(i, object)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].d != all[j].d {
			return all[i].d < all[j].d
		}
		return all[i].pivot < all[j].pivot
	})
	if k > len(all) {
		k = len(all)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = all[i].pivot
	}
	return out
}

// InPrefix reports whether object id's K_idx closest-pivot prefix
// contains pivot (by pivot index into idx.pivotIDs), for testing
// property P5 directly against the built postings.
func (idx *Index) InPrefix(pivot int, id uint32) bool {
	list := idx.postings[pivot]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= id })
	return i < len(list) && list[i] == id
}
