// Package dendrogram implements the immutable (once the run ends)
// binary-ish merge tree, with the "also created from" extension needed
// when a cascading merge reroutes an earlier partial result into a
// later one at the same timestamp.
package dendrogram

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/handle"
)

// Node is one merge (or input leaf). Leaves have no CreatedFrom. At is
// the timestamp the merge occurred; Glyph is a stable identity and
// Pos/Weight are a snapshot of the merged glyph at construction time
// (merged glyphs are mutated in place during a cascade via SetGlyph,
// so Pos/Weight may change on the root-in-flight node until the merge
// it belongs to finishes).
type Node struct {
	Glyph  handle.GlyphID
	Pos    orb.Point
	Weight int
	At     float64

	// CreatedFrom holds every node absorbed into this one: the pair
	// that triggered the merge, plus any additional nodes folded in by
	// AlsoCreatedFrom during a nested-merge cascade.
	CreatedFrom []*Node
}

// NewLeaf builds a node with no children, used once per input glyph
// during engine initialisation.
func NewLeaf(id handle.GlyphID, pos orb.Point, weight int) *Node {
	return &Node{Glyph: id, Pos: pos, Weight: weight}
}

// NewMerge builds a node combining two existing nodes at time at.
func NewMerge(id handle.GlyphID, pos orb.Point, weight int, at float64, a, b *Node) *Node {
	return &Node{Glyph: id, Pos: pos, Weight: weight, At: at, CreatedFrom: []*Node{a, b}}
}

// AlsoCreatedFrom absorbs an additional source node into this one,
// used when the nested-merge cascade folds a third (or later) glyph
// into a merge already in flight at the same timestamp.
func (n *Node) AlsoCreatedFrom(other *Node) {
	n.CreatedFrom = append(n.CreatedFrom, other)
}

// SetGlyph updates the identity/position/weight in place, used when the
// cascade grows the in-flight merged glyph before the node is finalised.
func (n *Node) SetGlyph(id handle.GlyphID, pos orb.Point, weight int) {
	n.Glyph = id
	n.Pos = pos
	n.Weight = weight
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.CreatedFrom) == 0 }

// Walk visits n and every descendant, children before parent (a
// depth-first postorder traversal). Every node is visited after its
// descendants, but nodes in different subtrees are not visited in time
// order; Cursor sorts by At for that.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range n.CreatedFrom {
		c.Walk(fn)
	}
	fn(n)
}

// Leaves returns every leaf descendant of n, in traversal order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
		}
	})
	return out
}
