package queue

// heapItem is one ready job in the pending heap.
type heapItem struct {
	id       string
	priority int
	seq      uint64
}

// pendingHeap orders ready jobs by priority (higher first), breaking ties
// by enqueue sequence so equal-priority jobs deliver FIFO.
type pendingHeap []heapItem

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
