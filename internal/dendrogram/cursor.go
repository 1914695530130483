package dendrogram

import "sort"

// Cursor is the external view used by visualisation: it linearises
// every merge node into global time order and lets a caller step
// forward/backward through them, replaying the clustering from "all
// leaves, no merges" to "fully merged" one event at a time.
type Cursor struct {
	events []*Node // internal (non-leaf) nodes, sorted ascending by At
	pos    int     // number of events applied so far, 0..len(events)
}

// NewCursor builds a Cursor over root's merge events, sorted by At then
// by Glyph for a deterministic order among exact ties.
func NewCursor(root *Node) *Cursor {
	var merges []*Node
	root.Walk(func(n *Node) {
		if !n.IsLeaf() {
			merges = append(merges, n)
		}
	})
	sort.SliceStable(merges, func(i, j int) bool {
		if merges[i].At != merges[j].At {
			return merges[i].At < merges[j].At
		}
		return merges[i].Glyph < merges[j].Glyph
	})
	return &Cursor{events: merges}
}

// Advance applies the next merge event, if any. Returns the node just
// applied and true, or nil/false at the end.
func (c *Cursor) Advance() (*Node, bool) {
	if c.pos >= len(c.events) {
		return nil, false
	}
	n := c.events[c.pos]
	c.pos++
	return n, true
}

// Retreat undoes the most recently applied merge event, if any.
// Returns the node just undone and true, or nil/false at the start.
func (c *Cursor) Retreat() (*Node, bool) {
	if c.pos == 0 {
		return nil, false
	}
	c.pos--
	return c.events[c.pos], true
}

// At returns the timestamp of the next event to be applied, or 0 and
// ok=false when the cursor is exhausted.
func (c *Cursor) At() (float64, bool) {
	if c.pos >= len(c.events) {
		return 0, false
	}
	return c.events[c.pos].At, true
}

// Position returns how many merge events have been applied, and the
// total count.
func (c *Cursor) Position() (applied, total int) {
	return c.pos, len(c.events)
}

// Reset rewinds the cursor to the start (no merges applied).
func (c *Cursor) Reset() { c.pos = 0 }

// Done reports whether every merge event has been applied.
func (c *Cursor) Done() bool { return c.pos >= len(c.events) }
