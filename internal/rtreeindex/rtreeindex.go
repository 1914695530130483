// Package rtreeindex wraps tidwall/rtree's generic R-tree as an
// independent spatial index: a structurally unrelated implementation
// of "what overlaps this box". No other package of the module imports
// it, and no test compares it against internal/quadtree; only its own
// tests exercise it.
package rtreeindex

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/azybler/growing-glyphs/internal/handle"
)

// Index is a snapshot-rebuildable R-tree over glyph footprints at one
// instant. Unlike internal/quadtree it holds no split/join state and no
// neighbour lists; it answers exactly one question, "what glyphs
// overlap this box", by brute spatial search.
type Index struct {
	tree rtree.RTreeG[handle.GlyphID]
}

// New builds an empty index.
func New() *Index { return &Index{} }

// Insert adds id's footprint bound to the index.
func (idx *Index) Insert(bound orb.Bound, id handle.GlyphID) {
	idx.tree.Insert(
		[2]float64{bound.Min.X(), bound.Min.Y()},
		[2]float64{bound.Max.X(), bound.Max.Y()},
		id,
	)
}

// Delete removes id's previously inserted footprint. bound must match
// the one passed to Insert.
func (idx *Index) Delete(bound orb.Bound, id handle.GlyphID) {
	idx.tree.Delete(
		[2]float64{bound.Min.X(), bound.Min.Y()},
		[2]float64{bound.Max.X(), bound.Max.Y()},
		id,
	)
}

// Overlapping returns every glyph whose stored footprint intersects
// rect, in R-tree scan order (no particular ordering guaranteed).
func (idx *Index) Overlapping(rect orb.Bound) []handle.GlyphID {
	var out []handle.GlyphID
	idx.tree.Search(
		[2]float64{rect.Min.X(), rect.Min.Y()},
		[2]float64{rect.Max.X(), rect.Max.Y()},
		func(_, _ [2]float64, id handle.GlyphID) bool {
			out = append(out, id)
			return true
		},
	)
	return out
}

// Len returns the number of footprints currently indexed.
func (idx *Index) Len() int { return idx.tree.Len() }

// BuildFromFootprints rebuilds an index from scratch given a flat
// footprint -> id list, used by tests that want a fresh independent
// index for one timestamp's worth of glyph squares rather than
// incrementally maintaining one across a whole run.
func BuildFromFootprints(footprints map[handle.GlyphID]orb.Bound) *Index {
	idx := New()
	for id, bound := range footprints {
		idx.Insert(bound, id)
	}
	return idx
}
