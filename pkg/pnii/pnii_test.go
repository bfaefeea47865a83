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
	"testing"

	"github.com/vecindex/vecindex/exact"
	"github.com/vecindex/vecindex/vector"
)

func randomVectors(n, dims int, seed int64) [][]byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]byte, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()*20 - 10
		}
		out[i] = vector.Encode(v)
	}
	return out
}

// P5: an object appears in a pivot's posting list iff that pivot is
// among the object's K_idx closest pivots by DistanceIndex.
func TestPrefixCorrectness(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(300, 6, 1)

	idx, err := New(context.Background(), space, objects,
		WithNumPivots(20), WithNumPivotIndex(5), WithNumPivotSearch(3), WithSeed(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for id := uint32(0); id < uint32(len(objects)); id++ {
		obj, _ := idx.Get(id)
		wantPrefix := idx.closestPivots(obj, idx.cfg.numPivotIndex, idx.distanceIndexToPivot)
		wantSet := make(map[int]bool, len(wantPrefix))
		for _, p := range wantPrefix {
			wantSet[p] = true
		}
		for p := range idx.pivotIDs {
			got := idx.InPrefix(p, id)
			want := wantSet[p]
			if got != want {
				t.Fatalf("object %d pivot %d: InPrefix=%v, want %v", id, p, got, want)
			}
		}
	}
}

// Posting lists must be sorted ascending by id (the invariant the final
// re-sort guarantees regardless of build order).
func TestPostingsSortedById(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(200, 4, 2)
	idx, err := New(context.Background(), space, objects,
		WithNumPivots(16), WithNumPivotIndex(4), WithSeed(2), WithParallelism(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for p, list := range idx.postings {
		for i := 1; i < len(list); i++ {
			if list[i-1] >= list[i] {
				t.Fatalf("posting[%d] not strictly ascending at %d: %v", p, i, list)
			}
		}
	}
}

// P6: the raw shared-pivot counter CandidateCount computes equals the
// size of the intersection between the query's K_srch prefix and the
// object's stored K_idx prefix.
func TestCounterCorrectness(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(150, 5, 3)
	idx, err := New(context.Background(), space, objects,
		WithNumPivots(24), WithNumPivotIndex(6), WithNumPivotSearch(3), WithSeed(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	query := vector.Encode([]float32{1, 2, 3, 4, 5})
	queryPrefix := idx.closestPivots(query, idx.cfg.numPivotSearch, idx.distanceQueryToPivot)
	querySet := make(map[int]bool, len(queryPrefix))
	for _, p := range queryPrefix {
		querySet[p] = true
	}

	for id := uint32(0); id < 20; id++ {
		obj, _ := idx.Get(id)
		objPrefix := idx.closestPivots(obj, idx.cfg.numPivotIndex, idx.distanceIndexToPivot)
		want := 0
		for _, p := range objPrefix {
			if querySet[p] {
				want++
			}
		}
		got := idx.CandidateCount(query, id)
		if got != want {
			t.Fatalf("object %d: CandidateCount=%d, want %d", id, got, want)
		}
	}
}

// Scenario 3: PNII recall@10 >= 0.6 against the exact oracle, at
// P=32, K_idx=8, K_srch=4, dbScanFrac=0.1.
func TestScenarioPNIIRecall(t *testing.T) {
	const n = 1000
	const dims = 16
	const k = 10

	space := vector.EuclideanSpace()
	objects := randomVectors(n, dims, 77)

	idx, err := New(context.Background(), space, objects,
		WithNumPivots(32), WithNumPivotIndex(8), WithNumPivotSearch(4), WithDBScanFrac(0.1), WithSeed(77))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	oracle := exact.New(space)
	for _, obj := range objects {
		oracle.Add(obj)
	}

	queries := randomVectors(30, dims, 88)
	var hits, total int
	for _, q := range queries {
		got := idx.Search(q, k)
		want := oracle.Search(q, k)

		wantSet := make(map[uint32]bool, len(want))
		for _, m := range want {
			wantSet[m.ID] = true
		}
		for _, m := range got {
			if wantSet[m.ID] {
				hits++
			}
		}
		total += len(want)
	}

	recall := float64(hits) / float64(total)
	if recall < 0.6 {
		t.Fatalf("recall@%d = %v, want >= 0.6", k, recall)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	space := vector.EuclideanSpace()
	idx, err := New(context.Background(), space, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := idx.Search(vector.Encode([]float32{1, 2}), 5); got != nil {
		t.Fatalf("Search on empty index = %v, want nil", got)
	}
}

func TestSearchResultsSortedByDistance(t *testing.T) {
	space := vector.EuclideanSpace()
	objects := randomVectors(400, 8, 4)
	idx, err := New(context.Background(), space, objects,
		WithNumPivots(32), WithNumPivotIndex(8), WithNumPivotSearch(4), WithSeed(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := idx.Search(vector.Encode(make([]float32, 8)), 10)
	for i := 1; i < len(got); i++ {
		if got[i-1].Dist > got[i].Dist {
			t.Fatalf("results not sorted ascending: %+v", got)
		}
	}
}
