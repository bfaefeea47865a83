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

// Package visited implements a reusable "visited" set for graph and
// accumulator traversals, using a generation counter instead of clearing a
// map or bitset between queries.
//
// A Set holds one generation number per object id plus a single current
// generation counter. Marking an id writes the current generation into its
// slot; testing membership compares the slot against the current
// generation. Resetting for the next query just increments the counter, so
// both Mark and Reset are O(1) regardless of how many ids were touched
// previously.
package visited

import "sync"

// Set is a generation-stamped visited/seen set over object ids in
// [0, n). It is not safe for concurrent use by multiple goroutines; callers
// that search concurrently should take one Set per goroutine from a Pool.
type Set struct {
	gen  uint32
	mark []uint32
}

// NewSet allocates a Set sized for ids in [0, n). The generation starts at
// 1 so a freshly zeroed mark slice does not read as already visited.
func NewSet(n int) *Set {
	return &Set{gen: 1, mark: make([]uint32, n)}
}

// Reset starts a new generation, so every id appears unvisited again. It
// does not touch the backing slice.
func (s *Set) Reset() {
	s.gen++
	if s.gen != 0 {
		return
	}
	// Wrapped around: the sentinel value 0 would spuriously collide with
	// a freshly-zeroed slice, so clear it and restart numbering at 1.
	for i := range s.mark {
		s.mark[i] = 0
	}
	s.gen = 1
}

// Grow extends the set to cover ids in [0, n) if it does not already.
// Newly added slots start out unvisited in the current generation.
func (s *Set) Grow(n int) {
	if n <= len(s.mark) {
		return
	}
	grown := make([]uint32, n)
	copy(grown, s.mark)
	s.mark = grown
}

// Visited reports whether id has been Marked since the last Reset.
func (s *Set) Visited(id uint32) bool {
	return int(id) < len(s.mark) && s.mark[id] == s.gen
}

// Mark records id as visited in the current generation. It reports
// whether id was newly marked (true) or already visited (false), which
// lets callers use it directly as a visit-and-test-first guard.
func (s *Set) Mark(id uint32) bool {
	if s.Visited(id) {
		return false
	}
	s.mark[id] = s.gen
	return true
}

// Pool lends generation-stamped Sets sized for a fixed id space, so a
// query goroutine can borrow scratch memory instead of allocating a fresh
// visited set per search.
type Pool struct {
	n    int
	pool sync.Pool
}

// NewPool creates a Pool that hands out Sets covering ids in [0, n).
func NewPool(n int) *Pool {
	p := &Pool{n: n}
	p.pool.New = func() any { return NewSet(p.n) }
	return p
}

// Get borrows a Set from the pool, reset to a fresh generation and grown
// to cover the pool's id space.
func (p *Pool) Get() *Set {
	s := p.pool.Get().(*Set)
	s.Grow(p.n)
	s.Reset()
	return s
}

// Put returns a Set to the pool for reuse.
func (p *Pool) Put(s *Set) {
	p.pool.Put(s)
}
