package event

// heap is a concrete-typed binary min-heap over Event, avoiding the
// interface-boxing overhead of container/heap on this module's busiest
// structure. Sift operations use hole-sift: one assignment per level
// instead of a full swap.
type heap struct {
	items []Event
}

func (h *heap) Len() int { return len(h.items) }

func (h *heap) push(e Event) {
	h.items = append(h.items, e)
	h.siftUp(len(h.items) - 1)
}

// pop removes and returns the minimum element. Callers must check Len()
// first; popping an empty heap panics via index-out-of-range.
func (h *heap) pop() Event {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *heap) peek() Event {
	return h.items[0]
}

func (h *heap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if !less(item, h.items[parent]) {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *heap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && less(h.items[right], h.items[child]) {
			child = right
		}
		if !less(h.items[child], item) {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}
