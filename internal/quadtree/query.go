package quadtree

import (
	"github.com/azybler/growing-glyphs/internal/handle"
)

// GetNonOrphanAncestor walks up from id until a non-orphan cell is
// found. Callers must use this when an out-of-cell event surfaces whose
// recorded cell has since become orphan.
func (qt *Quadtree) GetNonOrphanAncestor(id handle.CellID) handle.CellID {
	for qt.cells[id].Orphan {
		id = qt.cells[id].Parent
	}
	return id
}

// FindLeaf locates the leaf containing (x, y) using an inclusive-bound,
// tie-broken-by-quadrant rule: a point on a shared boundary belongs to
// the west/south side of the split.
func (qt *Quadtree) FindLeaf(x, y float64) handle.CellID {
	id := qt.root
	for !qt.cells[id].IsLeaf() {
		b := qt.cells[id].Bound
		midX := (b.Min.X() + b.Max.X()) / 2
		midY := (b.Min.Y() + b.Max.Y()) / 2
		west := x <= midX
		north := y > midY
		switch {
		case west && north:
			id = qt.cells[id].Children[nw]
		case !west && north:
			id = qt.cells[id].Children[ne]
		case west && !north:
			id = qt.cells[id].Children[sw]
		default:
			id = qt.cells[id].Children[se]
		}
	}
	return id
}

// LeavesOverlapping returns every leaf whose rectangle overlaps id's
// growing square at time t, via the same predicate Insert uses. It does
// not mutate the tree.
func (qt *Quadtree) LeavesOverlapping(id handle.GlyphID, t float64) []handle.CellID {
	var out []handle.CellID
	qt.collectOverlapping(qt.root, id, t, &out)
	return out
}

// LeavesOverlappingFrom is LeavesOverlapping restricted to the subtree
// rooted at start, used after InsertFrom to discover exactly which
// leaves under a given neighbour a glyph ended up in (possibly several,
// if the insert triggered a split).
func (qt *Quadtree) LeavesOverlappingFrom(start handle.CellID, id handle.GlyphID, t float64) []handle.CellID {
	var out []handle.CellID
	qt.collectOverlapping(start, id, t, &out)
	return out
}

func (qt *Quadtree) collectOverlapping(start handle.CellID, id handle.GlyphID, t float64, out *[]handle.CellID) {
	cell := &qt.cells[start]
	if !qt.overlaps(cell.Bound, id, t) {
		return
	}
	if cell.IsLeaf() {
		*out = append(*out, start)
		return
	}
	for _, child := range cell.Children {
		qt.collectOverlapping(child, id, t, out)
	}
}

// Walk visits every current leaf cell.
func (qt *Quadtree) Walk(fn func(handle.CellID)) {
	qt.walkFrom(qt.root, fn)
}

func (qt *Quadtree) walkFrom(id handle.CellID, fn func(handle.CellID)) {
	cell := &qt.cells[id]
	if cell.IsLeaf() {
		fn(id)
		return
	}
	for _, c := range cell.Children {
		qt.walkFrom(c, fn)
	}
}

// AllLeaves returns every current leaf cell handle.
func (qt *Quadtree) AllLeaves() []handle.CellID {
	var out []handle.CellID
	qt.Walk(func(id handle.CellID) { out = append(out, id) })
	return out
}
