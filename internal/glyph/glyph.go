// Package glyph implements the growing-point glyph: identity, weight,
// liveness, per-glyph event caches, and quadtree-cell membership.
// Glyphs are arena-owned by internal/engine; this package only holds
// non-owning handle.CellID/handle.GlyphID references.
package glyph

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// State is the monotone liveness state: Unborn -> Alive -> Dead.
type State uint8

const (
	Unborn State = iota
	Alive
	Dead
)

// DefaultMaxMergesToRecord is the per-glyph merge-cache capacity hint.
const DefaultMaxMergesToRecord = 4

type mergeCandidate struct {
	partner handle.GlyphID
}

type exitCandidate struct {
	cell handle.CellID
	side geom.Side
}

// Glyph is a growing object with immutable (x, y, weight) and mutable
// liveness/membership/event-cache state.
type Glyph struct {
	ID     handle.GlyphID
	Pos    orb.Point
	Weight int
	State  State

	// Cells is the insertion-order list of leaf quadtree cells currently
	// intersecting this glyph. Duplicates are forbidden; callers must use
	// AddCell/RemoveCell rather than touching the slice directly.
	Cells []handle.CellID

	// TrackedBy is the inverse of "recorded its first merge as being with
	// this glyph"; nil unless tracking is enabled.
	TrackedBy map[handle.GlyphID]struct{}

	mergeEvents     minHeap[mergeCandidate]
	outOfCellEvents minHeap[exitCandidate]
}

// New creates an Unborn glyph. Engines mark it Alive during
// initialisation or upon a merge.
func New(id handle.GlyphID, pos orb.Point, weight int, track bool) *Glyph {
	g := &Glyph{ID: id, Pos: pos, Weight: weight, State: Unborn}
	if track {
		g.TrackedBy = make(map[handle.GlyphID]struct{})
	}
	return g
}

// Particle is the geom.GrowFunc view of this glyph.
func (g *Glyph) Particle() geom.Particle {
	return geom.Particle{Pos: g.Pos, Weight: g.Weight}
}

// AddCell appends cell to Cells. Callers are responsible for not calling
// this twice for the same cell; duplicates are forbidden.
func (g *Glyph) AddCell(c handle.CellID) {
	g.Cells = append(g.Cells, c)
}

// RemoveCell removes the first occurrence of c from Cells.
func (g *Glyph) RemoveCell(c handle.CellID) {
	for i, have := range g.Cells {
		if have == c {
			g.Cells = append(g.Cells[:i], g.Cells[i+1:]...)
			return
		}
	}
}

// RecordMerge inserts a candidate merge with partner at time at into this
// glyph's merge-event cache.
func (g *Glyph) RecordMerge(partner handle.GlyphID, at float64) {
	g.mergeEvents.push(at, mergeCandidate{partner: partner})
}

// RecordOutOfCell inserts a candidate boundary crossing into this
// glyph's out-of-cell event cache.
func (g *Glyph) RecordOutOfCell(cell handle.CellID, side geom.Side, at float64) {
	g.outOfCellEvents.push(at, exitCandidate{cell: cell, side: side})
}

// Lookup resolves a glyph handle to its Glyph, used by PopMergeInto to
// check partner liveness and register tracked_by.
type Lookup func(handle.GlyphID) *Glyph

// PopMergeInto discards stale cached merge candidates (partner not
// alive) and, on the first usable one, promotes it into the global
// queue and registers self in the partner's tracked_by. Returns whether
// an event was promoted.
func (g *Glyph) PopMergeInto(q event.Queue, lookup Lookup) bool {
	for g.mergeEvents.Len() > 0 {
		at, cand := g.mergeEvents.peek()
		partner := lookup(cand.partner)
		if partner == nil || partner.State != Alive {
			g.mergeEvents.pop()
			continue
		}
		g.mergeEvents.pop()
		q.Add(event.NewMerge(g.ID, cand.partner, at))
		if partner.TrackedBy != nil {
			partner.TrackedBy[g.ID] = struct{}{}
		}
		return true
	}
	return false
}

// PopOutOfCellInto promotes the head out-of-cell candidate into the
// global queue. Stale-filtering (cell no longer a leaf) happens at
// consume time in the engine.
func (g *Glyph) PopOutOfCellInto(q event.Queue) bool {
	if g.outOfCellEvents.Len() == 0 {
		return false
	}
	at, cand := g.outOfCellEvents.pop()
	q.Add(event.NewOutOfCell(g.ID, cand.cell, cand.side, at))
	return true
}
