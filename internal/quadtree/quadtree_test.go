package quadtree

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
)

type fixture struct {
	glyphs map[handle.GlyphID]*glyph.Glyph
	qt     *Quadtree
}

func newFixture(bound orb.Bound, maxPerCell int, minCellSize float64) *fixture {
	f := &fixture{glyphs: map[handle.GlyphID]*glyph.Glyph{}}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return f.glyphs[id] }
	f.qt = New(bound, geom.LinearGrow{}, lookup, maxPerCell, minCellSize)
	return f
}

func (f *fixture) addGlyph(id handle.GlyphID, x, y float64, w int) *glyph.Glyph {
	g := glyph.New(id, orb.Point{x, y}, w, false)
	g.State = glyph.Alive
	f.glyphs[id] = g
	return g
}

// membershipSymmetric checks that every glyph a leaf lists also lists
// that leaf back, across every leaf.
func membershipSymmetric(t *testing.T, f *fixture) {
	t.Helper()
	for _, leafID := range f.qt.AllLeaves() {
		cell := f.qt.Cell(leafID)
		for _, gid := range cell.Glyphs {
			g := f.glyphs[gid]
			found := false
			for _, c := range g.Cells {
				if c == leafID {
					found = true
				}
			}
			assert.Truef(t, found, "glyph %d in leaf %d but leaf not in glyph.Cells", gid, leafID)
		}
	}
	for gid, g := range f.glyphs {
		for _, c := range g.Cells {
			cell := f.qt.Cell(c)
			found := false
			for _, h := range cell.Glyphs {
				if h == gid {
					found = true
				}
			}
			assert.Truef(t, found, "glyph %d references cell %d but cell doesn't list it", gid, c)
		}
	}
}

// neighbourSymmetric checks that every neighbour relationship is
// mutual across every leaf.
func neighbourSymmetric(t *testing.T, f *fixture) {
	t.Helper()
	for _, leafID := range f.qt.AllLeaves() {
		cell := f.qt.Cell(leafID)
		for _, side := range allSides {
			opp := side.Opposite()
			for _, n := range cell.Neighbours[side] {
				nCell := f.qt.Cell(n)
				found := false
				for _, back := range nCell.Neighbours[opp] {
					if back == leafID {
						found = true
					}
				}
				assert.Truef(t, found, "leaf %d has neighbour %d on side %v, but not reciprocated", leafID, n, side)
			}
		}
	}
}

func TestInsertSingleGlyphNoSplit(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{-100, -100}, Max: orb.Point{100, 100}}, 10, 1e-4)
	f.addGlyph(0, 0, 0, 1)
	n, err := f.qt.Insert(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.qt.Cell(f.qt.Root()).IsLeaf())
	membershipSymmetric(t, f)
}

func TestSplitOnOverCapacity(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{-100, -100}, Max: orb.Point{100, 100}}, 2, 1e-4)
	for i := 0; i < 5; i++ {
		f.addGlyph(handle.GlyphID(i), float64(i)*0.001, 0, 1)
		_, err := f.qt.Insert(handle.GlyphID(i), 0)
		require.NoError(t, err)
	}
	root := f.qt.Cell(f.qt.Root())
	assert.False(t, root.IsLeaf(), "root should have split")
	for _, leafID := range f.qt.AllLeaves() {
		assert.LessOrEqualf(t, len(f.qt.Cell(leafID).Glyphs), 2, "leaf %d over capacity", leafID)
	}
	membershipSymmetric(t, f)
	neighbourSymmetric(t, f)
}

func TestJoinReversesSplit(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{-100, -100}, Max: orb.Point{100, 100}}, 2, 1e-4)
	ids := []handle.GlyphID{0, 1, 2}
	for i, id := range ids {
		f.addGlyph(id, float64(i)*0.001, 0, 1)
		_, err := f.qt.Insert(id, 0)
		require.NoError(t, err)
	}
	require.False(t, f.qt.Cell(f.qt.Root()).IsLeaf())

	// Kill and remove two glyphs so the remaining one fits back in one cell.
	for _, id := range ids[:2] {
		f.glyphs[id].State = glyph.Dead
		cells := append([]handle.CellID(nil), f.glyphs[id].Cells...)
		for _, c := range cells {
			f.qt.RemoveGlyph(id, c, 1)
		}
	}
	assert.True(t, f.qt.Cell(f.qt.Root()).IsLeaf(), "root should have rejoined")
	membershipSymmetric(t, f)
}

func TestSplitRefusesBelowMinCellSize(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, 1, 10)
	f.addGlyph(0, 0.1, 0.1, 1)
	f.addGlyph(1, 0.2, 0.2, 1)
	_, err := f.qt.Insert(0, 0)
	require.NoError(t, err)
	_, err = f.qt.Insert(1, 0)
	require.ErrorIs(t, err, ErrCapacityUnsatisfiable)
}

func TestFindLeafTieBreakIsConsistentAndExhaustive(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{-8, -8}, Max: orb.Point{8, 8}}, 1, 1e-4)
	f.addGlyph(0, -4, -4, 1)
	f.addGlyph(1, 4, -4, 1)
	f.addGlyph(2, -4, 4, 1)
	f.addGlyph(3, 4, 4, 1)
	for i := handle.GlyphID(0); i < 4; i++ {
		_, err := f.qt.Insert(i, 0)
		require.NoError(t, err)
	}
	// Every point in the root bound must resolve to exactly one leaf;
	// spot-check grid points including cell boundaries.
	for x := -8.0; x <= 8.0; x += 0.5 {
		for y := -8.0; y <= 8.0; y += 0.5 {
			leaf := f.qt.FindLeaf(x, y)
			b := f.qt.Cell(leaf).Bound
			assert.GreaterOrEqualf(t, x, b.Min.X(), "x=%v y=%v leaf bound %v", x, y, b)
			assert.LessOrEqualf(t, x, b.Max.X(), "x=%v y=%v leaf bound %v", x, y, b)
			assert.GreaterOrEqualf(t, y, b.Min.Y(), "x=%v y=%v leaf bound %v", x, y, b)
			assert.LessOrEqualf(t, y, b.Max.Y(), "x=%v y=%v leaf bound %v", x, y, b)
		}
	}
}

func TestGetNonOrphanAncestor(t *testing.T) {
	f := newFixture(orb.Bound{Min: orb.Point{-100, -100}, Max: orb.Point{100, 100}}, 2, 1e-4)
	ids := []handle.GlyphID{0, 1, 2}
	for i, id := range ids {
		f.addGlyph(id, float64(i)*0.001, 0, 1)
		_, err := f.qt.Insert(id, 0)
		require.NoError(t, err)
	}
	root := f.qt.Root()
	require.False(t, f.qt.Cell(root).IsLeaf())
	childID := f.qt.Cell(root).Children[0]

	for _, id := range ids[:2] {
		f.glyphs[id].State = glyph.Dead
		cells := append([]handle.CellID(nil), f.glyphs[id].Cells...)
		for _, c := range cells {
			f.qt.RemoveGlyph(id, c, 1)
		}
	}
	require.True(t, f.qt.Cell(root).IsLeaf())
	assert.Equal(t, root, f.qt.GetNonOrphanAncestor(childID))
}
