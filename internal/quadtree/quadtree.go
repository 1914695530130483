// Package quadtree implements the adaptive point/region quadtree:
// split/join, neighbour lookup, and orphan handling over growing glyphs.
package quadtree

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// ErrCapacityUnsatisfiable is returned when a split would create cells
// smaller than MinCellSize.
var ErrCapacityUnsatisfiable = errors.New("quadtree: capacity unsatisfiable")

// Epsilon is the slack added to touch-time comparisons so a glyph whose
// boundary exactly meets a cell at time t is considered overlapping.
const Epsilon = 1e-9

// Quadtree is the spatial index. Cells are arena-owned (cells slice);
// all cross-references are handle.CellID. Glyph geometry is resolved
// through lookup, since glyphs are arena-owned by the engine, not here.
type Quadtree struct {
	cells  []Cell
	root   handle.CellID
	grow   geom.GrowFunc
	lookup glyph.Lookup

	maxGlyphsPerCell int
	minCellSize      float64
}

// New builds a quadtree with a single root cell covering bound.
func New(bound orb.Bound, grow geom.GrowFunc, lookup glyph.Lookup, maxGlyphsPerCell int, minCellSize float64) *Quadtree {
	qt := &Quadtree{
		grow:             grow,
		lookup:           lookup,
		maxGlyphsPerCell: maxGlyphsPerCell,
		minCellSize:      minCellSize,
	}
	qt.root = qt.newCell(bound, handle.NoCell)
	return qt
}

func (qt *Quadtree) newCell(bound orb.Bound, parent handle.CellID) handle.CellID {
	id := handle.CellID(len(qt.cells))
	qt.cells = append(qt.cells, Cell{
		ID:       id,
		Bound:    bound,
		Parent:   parent,
		Children: [4]handle.CellID{handle.NoCell, handle.NoCell, handle.NoCell, handle.NoCell},
	})
	return id
}

// Root returns the root cell's handle.
func (qt *Quadtree) Root() handle.CellID { return qt.root }

// Bound returns the overall bounding rectangle the tree was built over.
// The root cell's own Bound never changes across splits (only its
// Children/Glyphs do), so this is cheap and stable for the engine's
// lifetime.
func (qt *Quadtree) Bound() orb.Bound { return qt.cells[qt.root].Bound }

// NonBoundarySides returns the sides of leaf id that do not lie on the
// overall bounding rectangle's edge — the only sides an out-of-cell
// event is meaningful for, since crossing a boundary side leaves the
// tree's covered area entirely.
func (qt *Quadtree) NonBoundarySides(id handle.CellID) []geom.Side {
	cell := qt.cells[id].Bound
	root := qt.cells[qt.root].Bound
	var out []geom.Side
	if cell.Min.Y() > root.Min.Y() {
		out = append(out, geom.South)
	}
	if cell.Max.Y() < root.Max.Y() {
		out = append(out, geom.North)
	}
	if cell.Min.X() > root.Min.X() {
		out = append(out, geom.West)
	}
	if cell.Max.X() < root.Max.X() {
		out = append(out, geom.East)
	}
	return out
}

// Cell returns a pointer to the arena-owned cell. Callers must not
// retain it across mutating calls (split/join may reallocate qt.cells).
func (qt *Quadtree) Cell(id handle.CellID) *Cell { return &qt.cells[id] }

func (qt *Quadtree) particle(id handle.GlyphID) geom.Particle {
	return qt.lookup(id).Particle()
}

// overlaps tests the geometric predicate shared by Insert and
// LeavesOverlapping: does id's growing square intersect rect at time t.
func (qt *Quadtree) overlaps(rect orb.Bound, id handle.GlyphID, t float64) bool {
	return qt.grow.TouchTimeRect(rect, qt.particle(id)) <= t+Epsilon
}

// Insert descends to every leaf overlapping id's square at time t, adds
// id to each, and enforces leaf capacity by splitting as needed. Returns
// the number of leaves id was added to.
func (qt *Quadtree) Insert(id handle.GlyphID, t float64) (int, error) {
	return qt.insertFrom(qt.root, id, t)
}

// InsertFrom behaves like Insert but descends only into the subtree
// rooted at start, used by out-of-cell handling to add a glyph to one
// specific neighbour rather than searching the whole tree.
func (qt *Quadtree) InsertFrom(start handle.CellID, id handle.GlyphID, t float64) (int, error) {
	return qt.insertFrom(start, id, t)
}

func (qt *Quadtree) insertFrom(start handle.CellID, id handle.GlyphID, t float64) (int, error) {
	cell := &qt.cells[start]
	if !qt.overlaps(cell.Bound, id, t) {
		return 0, nil
	}
	if cell.IsLeaf() {
		cell.Glyphs = append(cell.Glyphs, id)
		qt.lookup(id).AddCell(start)
		if qt.countAlive(start) > qt.maxGlyphsPerCell {
			if err := qt.Split(start, t); err != nil {
				return 1, err
			}
		}
		return 1, nil
	}
	count := 0
	for _, child := range qt.cells[start].Children {
		n, err := qt.insertFrom(child, id, t)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// countAlive compacts leaf's Glyphs to drop dead stragglers left by
// cooperative deletion, and returns the live count.
func (qt *Quadtree) countAlive(id handle.CellID) int {
	cell := &qt.cells[id]
	live := cell.Glyphs[:0]
	for _, g := range cell.Glyphs {
		if qt.lookup(g).State != glyph.Dead {
			live = append(live, g)
		}
	}
	cell.Glyphs = live
	return len(live)
}

// Split replaces the leaf id with four equally-sized children, and
// redistributes its glyphs by reinsertion at time t. It recurses into
// any child still over capacity, and refuses (returning
// ErrCapacityUnsatisfiable) rather than create cells smaller than
// MinCellSize.
func (qt *Quadtree) Split(id handle.CellID, t float64) error {
	bound := qt.cells[id].Bound
	width := bound.Max.X() - bound.Min.X()
	height := bound.Max.Y() - bound.Min.Y()
	newWidth, newHeight := width/2, height/2
	if newWidth < qt.minCellSize || newHeight < qt.minCellSize {
		return fmt.Errorf("%w: cell %d at t=%v would split to %gx%g below MinCellSize=%g",
			ErrCapacityUnsatisfiable, id, t, newWidth, newHeight, qt.minCellSize)
	}

	mid := orb.Point{(bound.Min.X() + bound.Max.X()) / 2, (bound.Min.Y() + bound.Max.Y()) / 2}

	bounds := [4]orb.Bound{
		nw: {Min: orb.Point{bound.Min.X(), mid.Y()}, Max: orb.Point{mid.X(), bound.Max.Y()}},
		ne: {Min: orb.Point{mid.X(), mid.Y()}, Max: orb.Point{bound.Max.X(), bound.Max.Y()}},
		sw: {Min: orb.Point{bound.Min.X(), bound.Min.Y()}, Max: orb.Point{mid.X(), mid.Y()}},
		se: {Min: orb.Point{mid.X(), bound.Min.Y()}, Max: orb.Point{bound.Max.X(), mid.Y()}},
	}

	// Detach the old glyph list before the cells slice can reallocate
	// under newCell, and before the cell becomes internal.
	old := append([]handle.GlyphID(nil), qt.cells[id].Glyphs...)
	for _, g := range old {
		qt.lookup(g).RemoveCell(id)
	}
	qt.cells[id].Glyphs = nil

	var children [4]handle.CellID
	for i, b := range bounds {
		children[i] = qt.newCell(b, id)
	}
	qt.cells[id].Children = children

	qt.rewireNeighboursOnSplit(id, children)
	qt.cells[id].Neighbours = [4][]handle.CellID{}

	for _, g := range old {
		if qt.lookup(g).State == glyph.Dead {
			continue
		}
		if _, err := qt.insertFrom(id, g, t); err != nil {
			return err
		}
	}
	return nil
}

// RemoveGlyph removes id from leaf cellID and asks the parent to
// maybe-join. Returns whether a join occurred anywhere in the resulting
// cascade.
func (qt *Quadtree) RemoveGlyph(id handle.GlyphID, cellID handle.CellID, t float64) bool {
	cell := &qt.cells[cellID]
	for i, g := range cell.Glyphs {
		if g == id {
			cell.Glyphs = append(cell.Glyphs[:i], cell.Glyphs[i+1:]...)
			break
		}
	}
	qt.lookup(id).RemoveCell(cellID)
	return qt.maybeJoin(cell.Parent, t)
}

// maybeJoin fires when all four children of id are leaves and the union
// of their alive glyphs has size <= MaxGlyphsPerCell. Joins cascade
// upward. Returns whether any join happened.
func (qt *Quadtree) maybeJoin(id handle.CellID, t float64) bool {
	if id == handle.NoCell {
		return false
	}
	cell := &qt.cells[id]
	if cell.IsLeaf() {
		return false
	}
	children := cell.Children
	for _, c := range children {
		if !qt.cells[c].IsLeaf() {
			return false
		}
	}

	union := qt.unionAliveGlyphs(children)
	if len(union) > qt.maxGlyphsPerCell {
		return false
	}

	for _, g := range union {
		for _, c := range children {
			qt.lookup(g).RemoveCell(c)
		}
		qt.lookup(g).AddCell(id)
	}

	qt.inheritNeighboursOnJoin(id, children)

	for _, c := range children {
		qt.cells[c].Orphan = true
		qt.cells[c].Glyphs = nil
		qt.cells[c].Neighbours = [4][]handle.CellID{}
	}

	cell = &qt.cells[id]
	cell.Glyphs = union
	cell.Children = [4]handle.CellID{handle.NoCell, handle.NoCell, handle.NoCell, handle.NoCell}

	qt.maybeJoin(cell.Parent, t)
	return true
}

func (qt *Quadtree) unionAliveGlyphs(children [4]handle.CellID) []handle.GlyphID {
	seen := make(map[handle.GlyphID]struct{})
	var out []handle.GlyphID
	for _, c := range children {
		for _, g := range qt.cells[c].Glyphs {
			if qt.lookup(g).State == glyph.Dead {
				continue
			}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}
