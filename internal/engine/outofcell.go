package engine

import (
	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
	"github.com/azybler/growing-glyphs/internal/quadtree"
)

// seedOutOfCellInit records exit candidates for g in leaf on every
// non-boundary side, used once during initialisation.
func (e *engine) seedOutOfCellInit(g *glyph.Glyph, leafID handle.CellID) {
	cell := e.qt.Cell(leafID)
	for _, side := range e.qt.NonBoundarySides(leafID) {
		at := e.grow.ExitTime(g.Particle(), cell.Bound, side)
		g.RecordOutOfCell(leafID, side, at)
	}
}

// seedOutOfCellAfterMerge records exit candidates for the freshly
// merged glyph in leaf, skipping sides whose neighbours already
// contain it and suppressing already-expired candidates.
func (e *engine) seedOutOfCellAfterMerge(g *glyph.Glyph, leafID handle.CellID, mergedAt float64) {
	cell := e.qt.Cell(leafID)
	for _, side := range e.qt.NonBoundarySides(leafID) {
		if neighboursContain(e.qt, cell, side, g.ID) {
			continue
		}
		at := e.grow.ExitTime(g.Particle(), cell.Bound, side)
		if at <= mergedAt {
			continue
		}
		g.RecordOutOfCell(leafID, side, at)
	}
}

// seedOutOfCellAfterCrossing records exit candidates for g in a newly
// entered leaf, skipping the side it entered through and suppressing
// candidates strictly before at.
func (e *engine) seedOutOfCellAfterCrossing(g *glyph.Glyph, leafID handle.CellID, entrySide geom.Side, at float64) {
	cell := e.qt.Cell(leafID)
	for _, side := range e.qt.NonBoundarySides(leafID) {
		if side == entrySide {
			continue
		}
		exitAt := e.grow.ExitTime(g.Particle(), cell.Bound, side)
		if exitAt < at {
			continue
		}
		g.RecordOutOfCell(leafID, side, exitAt)
	}
}

func neighboursContain(qt *quadtree.Quadtree, cell *quadtree.Cell, side geom.Side, gid handle.GlyphID) bool {
	for _, n := range cell.Neighbours[side] {
		for _, h := range qt.Cell(n).Glyphs {
			if h == gid {
				return true
			}
		}
	}
	return false
}

func glyphIn(cell *quadtree.Cell, gid handle.GlyphID) bool {
	for _, h := range cell.Glyphs {
		if h == gid {
			return true
		}
	}
	return false
}

// handleOutOfCell processes one OutOfCell event: a glyph's growing
// square has reached (or, after a join, is predicted to reach) the far
// edge of a cell, and may now also overlap one or more neighbours.
// Growth only adds membership; a glyph never leaves the cells it
// already occupies.
func (e *engine) handleOutOfCell(ev event.Event) error {
	g := e.lookup(ev.Glyph)
	cellID := ev.Cell
	side := ev.Side
	at := ev.At

	if e.qt.Cell(cellID).Orphan {
		ancestor := e.qt.GetNonOrphanAncestor(cellID)
		if e.sideIsInterior(cellID, ancestor, side) {
			// The join swallowed this boundary; refresh the prediction
			// against the ancestor's own (farther) edge instead of
			// testing any actual crossing.
			exitAt := e.grow.ExitTime(g.Particle(), e.qt.Cell(ancestor).Bound, side)
			g.RecordOutOfCell(ancestor, side, exitAt)
			g.PopOutOfCellInto(e.queue)
			return nil
		}
		cellID = ancestor
	}

	cell := e.qt.Cell(cellID)
	footprint := e.grow.SizeAt(g.Particle(), at)
	neighbours := append([]handle.CellID(nil), cell.Neighbours[side]...)
	for _, n := range neighbours {
		nCell := e.qt.Cell(n)
		if !quadtree.OverlapsOnSide(footprint, nCell.Bound, side) {
			continue
		}
		if glyphIn(nCell, g.ID) {
			continue
		}
		if _, err := e.qt.InsertFrom(n, g.ID, at); err != nil {
			return err
		}
		for _, leafID := range e.qt.LeavesOverlappingFrom(n, g.ID, at) {
			e.rec.Start(g.ID)
			e.recordCandidates(g.ID, e.qt.Cell(leafID).Glyphs)
			e.rec.AddEventsTo(e.queue, e.cfg.Robust)
			e.seedOutOfCellAfterCrossing(g, leafID, side.Opposite(), at)
		}
	}
	g.PopOutOfCellInto(e.queue)
	return nil
}

// sideIsInterior reports whether side of the pre-join cell oldID now
// lies strictly inside ancestor — i.e. the join absorbed whatever used
// to be beyond that edge, so it is no longer a real cell boundary.
func (e *engine) sideIsInterior(oldID, ancestorID handle.CellID, side geom.Side) bool {
	old := e.qt.Cell(oldID).Bound
	anc := e.qt.Cell(ancestorID).Bound
	switch side {
	case geom.North:
		return anc.Max.Y() > old.Max.Y()
	case geom.South:
		return anc.Min.Y() < old.Min.Y()
	case geom.East:
		return anc.Max.X() > old.Max.X()
	default: // West
		return anc.Min.X() < old.Min.X()
	}
}
