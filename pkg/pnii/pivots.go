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

// Package pnii implements the Pivot-Neighborhood Inverted Index: an
// approximate nearest-neighbor index that ranks candidates by how many
// of their closest pivots a query shares, rather than by graph
// proximity (see pkg/hnsw for that alternative).
package pnii

import "math/rand"

// samplePivots draws p distinct indices from [0, n) by Fisher-Yates
// partial shuffle, using rng, and returns them in the order they were
// drawn (= insertion order into the pivot set).
func samplePivots(n, p int, rng *rand.Rand) []uint32 {
	if p > n {
		p = n
	}
	pool := make([]uint32, n)
	for i := range pool {
		pool[i] = uint32(i)
	}
	for i := 0; i < p; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:p]
}
