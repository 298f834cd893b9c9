package tracking

// candidatePair couples one active track with one detection of the current
// frame and their gate distance.
type candidatePair struct {
	trackID  int
	detIndex int
	distance float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

type pairHeap []candidatePair

func (h pairHeap) Len() int { return len(h) }

// Less orders by ascending distance; ties fall back to (track, detection)
// order so the walk over candidates is a deterministic total order. Note
// tie order is by track id, not by active-table slot as a stable sort of
// the row-major flattened distance matrix would give; both are
// deterministic and ids usually follow slot order anyway.
func (h pairHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	if h[i].trackID != h[j].trackID {
		return h[i].trackID < h[j].trackID
	}
	return h[i].detIndex < h[j].detIndex
}

func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Push(x candidatePair) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Pop() candidatePair {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h pairHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h pairHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
