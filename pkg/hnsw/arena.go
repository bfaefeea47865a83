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

// Package hnsw implements a Hierarchical Navigable Small World graph index
// for approximate nearest-neighbor search over a vecindex.Space.
//
// The graph is held in a dense arena (arena.go) addressed by 32-bit node
// ids rather than pointers, matching the object buffer's id space. Each
// node owns one neighbor-list slice per layer it participates in,
// protected by a per-node spinlock so that concurrent insertions only
// contend when they touch the same node (build.go). Queries take no
// per-node lock: they read neighbor lists that a concurrent insertion may
// be appending to, replacing (shrink) or removing an entry from
// (disconnect), and treat every observed id as a hypothesis checked by
// distance and the visited set (search.go).
package hnsw

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a tiny CAS-based mutual exclusion lock, used per node
// instead of one lock per index so that concurrent inserts touching
// different nodes never contend.
type spinlock struct {
	locked atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.locked.Store(false)
}

// node is one HNSW graph node: its top layer and one neighbor-id slice
// per layer in [0, topLayer].
type node struct {
	topLayer  int32
	neighbors [][]uint32
	lock      spinlock
}
