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

// Package heap provides a bounded candidate heap used to collect the k best
// (distance, id) pairs seen during a nearest-neighbor search.
//
// Bounded is a max-heap capped at a fixed capacity: once full, a push only
// succeeds if the candidate beats the current worst element, which is then
// evicted. Ties in distance are broken by id so that results are
// deterministic regardless of insertion order.
package heap

import "container/heap"

// Item is a single (distance, id) candidate held by a Bounded heap.
type Item struct {
	Dist float32
	ID   uint32
}

// Bounded is a capacity-limited max-heap of Items, ordered so the worst
// (largest distance, tie-broken by largest id) candidate is always at the
// root and is the first one evicted when the heap is over capacity.
type Bounded struct {
	cap   int
	items []Item
}

// NewBounded creates a Bounded heap that retains at most capacity items.
// A non-positive capacity is treated as unbounded.
func NewBounded(capacity int) *Bounded {
	return &Bounded{cap: capacity}
}

// Len returns the number of items currently held.
func (b *Bounded) Len() int { return len(b.items) }

// Full reports whether the heap has reached its capacity.
func (b *Bounded) Full() bool { return b.cap > 0 && len(b.items) >= b.cap }

// Worst returns the current worst (largest) item and true, or the zero
// Item and false if the heap is empty.
func (b *Bounded) Worst() (Item, bool) {
	if len(b.items) == 0 {
		return Item{}, false
	}
	return b.items[0], true
}

// TryPush offers a candidate to the heap. It is admitted unconditionally
// while the heap has not reached capacity; once full, it is admitted only
// if it is strictly better than the current worst element, which is then
// evicted. TryPush reports whether the candidate was admitted.
func (b *Bounded) TryPush(it Item) bool {
	if !b.Full() {
		heap.Push((*itemHeap)(b), it)
		return true
	}
	worst := b.items[0]
	if less(it, worst) {
		b.items[0] = it
		heap.Fix((*itemHeap)(b), 0)
		return true
	}
	return false
}

// DrainSorted removes all items and returns them sorted ascending by
// distance (with id as tie-break). The heap is empty after this call.
func (b *Bounded) DrainSorted() []Item {
	n := len(b.items)
	out := make([]Item, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop((*itemHeap)(b)).(Item)
	}
	return out
}

// less reports whether a is strictly better than b: smaller distance is
// better, and among equal distances smaller id is better. TryPush uses it
// to decide whether a candidate beats the current worst; Less below
// inverts it so container/heap keeps the worst item at the root.
func less(a, b Item) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.ID < b.ID
}

// itemHeap adapts Bounded's backing slice to container/heap.Interface,
// implementing a max-heap (worst item at the root) over distance with an
// id tie-break.
type itemHeap Bounded

func (h *itemHeap) Len() int { return len(h.items) }

func (h *itemHeap) Less(i, j int) bool {
	// Max-heap: root must be the worst (largest dist, then largest id).
	return !less(h.items[i], h.items[j])
}

func (h *itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap) Push(x any) { h.items = append(h.items, x.(Item)) }

func (h *itemHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}
