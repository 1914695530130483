package engine

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
	"github.com/azybler/growing-glyphs/internal/quadtree"
)

// handleMerge fuses the triggering event and every overlap it induces
// into one logical merge at a fixed timestamp. It returns the
// dendrogram node bound to the resulting glyph, so the caller can
// track the most recently bound node as the eventual root.
func (e *engine) handleMerge(ev event.Event) (*dendrogram.Node, error) {
	mergedAt := ev.At
	nested := &nestedQueue{}
	nested.push(ev)

	var merged *glyph.Glyph
	var hc *dendrogram.Node
	var joinedAncestors []handle.CellID
	var repairCandidates []handle.GlyphID

	for {
		for !nested.empty() {
			m := nested.pop()

			var a *glyph.Glyph
			if m.A == handle.NoGlyph {
				a = merged
			} else {
				a = e.lookup(m.A)
			}
			b := e.lookup(m.B)
			if a == nil || a.State != glyph.Alive || b == nil || b.State != glyph.Alive {
				continue
			}

			var dying []*glyph.Glyph
			if merged == nil {
				id, g := e.combine(a, b)
				merged = g
				hc = dendrogram.NewMerge(id, g.Pos, g.Weight, mergedAt, e.nodes[a.ID], e.nodes[b.ID])
				dying = []*glyph.Glyph{a, b}
			} else {
				hc.AlsoCreatedFrom(e.nodes[b.ID])
				id, g := e.combine(merged, b)
				merged = g
				hc.SetGlyph(id, g.Pos, g.Weight)
				dying = []*glyph.Glyph{b}
			}

			for _, g := range dying {
				g.State = glyph.Dead
				e.numAlive--
				cells := append([]handle.CellID(nil), g.Cells...)
				for _, c := range cells {
					if e.qt.RemoveGlyph(g.ID, c, mergedAt) {
						joinedAncestors = appendUniqueCell(joinedAncestors, e.qt.GetNonOrphanAncestor(c))
					}
				}
				if e.cfg.Track && !e.cfg.Robust {
					for partner := range g.TrackedBy {
						repairCandidates = appendUniqueGlyph(repairCandidates, partner)
					}
				}
			}
		}
		if !e.scanOverlaps(merged, mergedAt, nested) {
			break
		}
	}

	// Post-pass A: cells that just grew via a join need every pair of
	// their (now co-located) glyphs compared for the first time.
	for _, ancestor := range joinedAncestors {
		e.recordLeafMerges(ancestor)
	}

	// Post-pass B: glyphs whose recorded first merge just died either
	// promote an already-cached alternative or re-record from scratch.
	for _, gid := range repairCandidates {
		g := e.lookup(gid)
		if g == nil || g.State != glyph.Alive {
			continue
		}
		if g.PopMergeInto(e.queue, e.lookup) {
			continue
		}
		e.rec.Start(gid)
		for _, c := range g.Cells {
			e.recordCandidates(gid, e.qt.Cell(c).Glyphs)
		}
		e.rec.AddEventsTo(e.queue, e.cfg.Robust)
	}

	merged.State = glyph.Alive
	e.numAlive++
	if _, err := e.qt.Insert(merged.ID, mergedAt); err != nil {
		return hc, err
	}
	for _, c := range merged.Cells {
		e.rec.Start(merged.ID)
		e.recordCandidates(merged.ID, e.qt.Cell(c).Glyphs)
		e.rec.AddEventsTo(e.queue, e.cfg.Robust)
		e.seedOutOfCellAfterMerge(merged, c, mergedAt)
	}
	merged.PopOutOfCellInto(e.queue)

	e.nodes[merged.ID] = hc
	return hc, nil
}

// combine builds the merged glyph: weighted centroid position, summed
// weight.
func (e *engine) combine(a, b *glyph.Glyph) (handle.GlyphID, *glyph.Glyph) {
	weight := a.Weight + b.Weight
	aw, bw := float64(a.Weight), float64(b.Weight)
	pos := orb.Point{
		(a.Pos.X()*aw + b.Pos.X()*bw) / float64(weight),
		(a.Pos.Y()*aw + b.Pos.Y()*bw) / float64(weight),
	}
	id := e.newGlyph(pos, weight)
	return id, e.lookup(id)
}

// scanOverlaps scans every leaf overlapping merged at t, and for every
// alive glyph h there whose touch time with merged is already <= t,
// pushes a cascade candidate. Returns whether anything was pushed.
func (e *engine) scanOverlaps(merged *glyph.Glyph, t float64, nested *nestedQueue) bool {
	found := false
	seen := map[handle.GlyphID]struct{}{}
	for _, leafID := range e.qt.LeavesOverlapping(merged.ID, t) {
		for _, h := range e.qt.Cell(leafID).Glyphs {
			if h == merged.ID {
				continue
			}
			if _, ok := seen[h]; ok {
				continue
			}
			hg := e.lookup(h)
			if hg == nil || hg.State != glyph.Alive {
				continue
			}
			tt := e.grow.TouchTime(merged.Particle(), hg.Particle())
			if tt > t+quadtree.Epsilon {
				continue
			}
			seen[h] = struct{}{}
			nested.push(event.NewMerge(handle.NoGlyph, h, tt))
			found = true
		}
	}
	return found
}

func appendUniqueCell(list []handle.CellID, id handle.CellID) []handle.CellID {
	for _, c := range list {
		if c == id {
			return list
		}
	}
	return append(list, id)
}

func appendUniqueGlyph(list []handle.GlyphID, id handle.GlyphID) []handle.GlyphID {
	for _, g := range list {
		if g == id {
			return list
		}
	}
	return append(list, id)
}
