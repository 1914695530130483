package engine

import "github.com/azybler/growing-glyphs/internal/event"

// nestedQueue is the local mini-heap driving the merge cascade: a
// handful of candidate merges discovered while fusing one triggering
// event, processed to exhaustion at a single fixed timestamp without
// ever re-entering the global queue. Cascades are small (a handful of
// immediate neighbours), so a linear-scan minimum is simpler than
// reusing the event package's hole-sift heap and just as fast here.
type nestedQueue struct {
	items []event.Event
}

func (n *nestedQueue) push(e event.Event) {
	n.items = append(n.items, e)
}

func (n *nestedQueue) pop() event.Event {
	best := 0
	for i := 1; i < len(n.items); i++ {
		if n.items[i].At < n.items[best].At {
			best = i
		}
	}
	e := n.items[best]
	n.items = append(n.items[:best], n.items[best+1:]...)
	return e
}

func (n *nestedQueue) empty() bool { return len(n.items) == 0 }
