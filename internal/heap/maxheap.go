// Package heap provides the bounded max-heap used for k-nearest-neighbour
// queries over distance matrices.
package heap

import "math"

// MaxHeap keeps the k smallest distances pushed so far.
// The largest kept distance is always at the root (index 0).
type MaxHeap struct {
	Indices   []int
	Distances []float64
	Size      int
	K         int
}

// New creates a new max-heap with capacity k.
func New(k int) *MaxHeap {
	h := &MaxHeap{
		Indices:   make([]int, k),
		Distances: make([]float64, k),
		K:         k,
	}
	h.Reset()
	return h
}

// Reset empties the heap, keeping its capacity.
func (h *MaxHeap) Reset() {
	for i := 0; i < h.K; i++ {
		h.Indices[i] = -1
		h.Distances[i] = math.Inf(1)
	}
	h.Size = 0
}

// MaxDist returns the largest kept distance, +Inf while the heap is not full.
func (h *MaxHeap) MaxDist() float64 {
	if h.K == 0 {
		return math.Inf(-1)
	}
	return h.Distances[0]
}

// Push offers a neighbour. It is kept if it is closer than the current worst;
// among equal distances the lower index wins. Returns whether it was kept.
func (h *MaxHeap) Push(idx int, dist float64) bool {
	if h.K == 0 || math.IsNaN(dist) || !h.less(idx, dist, 0) {
		return false
	}

	h.Distances[0] = dist
	h.Indices[0] = idx
	h.siftDown(0, h.K)

	if h.Size < h.K {
		h.Size++
	}
	return true
}

// less reports whether the entry (idx, dist) sorts before the one in slot.
// Entries order by distance, then index. Empty slots (index -1) sort after
// every real entry.
func (h *MaxHeap) less(idx int, dist float64, slot int) bool {
	other := h.Indices[slot]
	switch {
	case idx < 0:
		return false
	case other < 0:
		return true
	case dist != h.Distances[slot]:
		return dist < h.Distances[slot]
	}
	return idx < other
}

// siftDown restores the heap property below i within the first n slots.
func (h *MaxHeap) siftDown(i, n int) {
	for {
		left := 2*i + 1
		right := 2*i + 2

		if left >= n {
			break
		}

		swap := i
		if h.less(h.Indices[swap], h.Distances[swap], left) {
			swap = left
		}
		if right < n && h.less(h.Indices[swap], h.Distances[swap], right) {
			swap = right
		}

		if swap == i {
			break
		}

		h.Distances[i], h.Distances[swap] = h.Distances[swap], h.Distances[i]
		h.Indices[i], h.Indices[swap] = h.Indices[swap], h.Indices[i]
		i = swap
	}
}

// Sorted returns the kept entries in ascending order and empties the heap.
func (h *MaxHeap) Sorted() (indices []int, distances []float64) {
	for end := h.K - 1; end > 0; end-- {
		h.Distances[0], h.Distances[end] = h.Distances[end], h.Distances[0]
		h.Indices[0], h.Indices[end] = h.Indices[end], h.Indices[0]
		h.siftDown(0, end)
	}

	// Empty slots sort to the back.
	indices = append([]int(nil), h.Indices[:h.Size]...)
	distances = append([]float64(nil), h.Distances[:h.Size]...)
	h.Reset()
	return indices, distances
}
