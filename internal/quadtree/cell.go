package quadtree

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// quadrant indexes Children/Neighbours consistently: NW, NE, SW, SE.
const (
	nw = 0
	ne = 1
	sw = 2
	se = 3
)

// Cell is an axis-aligned quadtree node. Glyphs/neighbour lists are
// only meaningful while the cell is a leaf; Children is
// [4]handle.NoCell for leaves.
type Cell struct {
	ID     handle.CellID
	Bound  orb.Bound
	Parent handle.CellID

	// Children is NW, NE, SW, SE; all handle.NoCell for a leaf.
	Children [4]handle.CellID

	// Glyphs holds glyphs intersecting this leaf. Dead glyphs may linger
	// until discovered; Quadtree.countAlive compacts them away.
	Glyphs []handle.GlyphID

	// Neighbours[side] lists neighbouring leaves across that side.
	// Empty for internal cells.
	Neighbours [4][]handle.CellID

	// Orphan is true once this cell's parent has joined and forgotten it.
	Orphan bool
}

// IsLeaf reports whether c has no children.
func (c *Cell) IsLeaf() bool { return c.Children[nw] == handle.NoCell }

// quadrantChildren returns the two quadrant indices bordering side.
func quadrantChildren(side geom.Side) (a, b int) {
	switch side {
	case geom.North:
		return nw, ne
	case geom.South:
		return sw, se
	case geom.East:
		return ne, se
	default: // West
		return nw, sw
	}
}
