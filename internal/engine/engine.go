package engine

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
	"github.com/azybler/growing-glyphs/internal/quadtree"
	"github.com/azybler/growing-glyphs/internal/recorder"
)

// engine is the arena and mutable state driving one Run. It is not
// exported: callers only ever see Run's result.
type engine struct {
	cfg   Config
	grow  geom.GrowFunc
	glyphs []*glyph.Glyph
	qt    *quadtree.Quadtree
	queue event.Queue
	rec   *recorder.Recorder
	nodes map[handle.GlyphID]*dendrogram.Node

	numAlive int
	totalMass int
}

// Run executes the full clustering algorithm over particles and
// returns the dendrogram root. particles must be non-empty and every
// weight >= 1.
func Run(particles []geom.Particle, cfg Config) (*dendrogram.Node, error) {
	if len(particles) == 0 {
		return nil, ErrNoGlyphs
	}
	for _, p := range particles {
		if p.Weight < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidWeight, p.Weight)
		}
	}

	e := &engine{
		cfg:   cfg,
		grow:  cfg.grow(),
		nodes: map[handle.GlyphID]*dendrogram.Node{},
	}
	e.queue = event.New(cfg.QueueBucketing)
	e.rec = recorder.New(e.grow, e.lookup, cfg.maxSlots(), cfg.ParallelRecordThreshold)

	bound := boundingBox(particles, cfg.BoundPadding)
	e.qt = quadtree.New(bound, e.grow, e.lookup, cfg.MaxGlyphsPerCell, cfg.MinCellSize)

	for _, p := range particles {
		id := e.newGlyph(p.Pos, p.Weight)
		g := e.lookup(id)
		g.State = glyph.Alive
		e.nodes[id] = dendrogram.NewLeaf(id, p.Pos, p.Weight)
		e.numAlive++
		e.totalMass += p.Weight
		if _, err := e.qt.Insert(id, 0); err != nil {
			return nil, err
		}
	}

	for _, leaf := range e.qt.AllLeaves() {
		e.recordLeafMerges(leaf)
	}
	for id := handle.GlyphID(0); int(id) < len(e.glyphs); id++ {
		g := e.lookup(id)
		for _, c := range g.Cells {
			e.seedOutOfCellInit(g, c)
		}
		g.PopOutOfCellInto(e.queue)
	}

	var last *dendrogram.Node
	for e.numAlive > 1 {
		ev, ok := e.peekValid()
		if !ok {
			break
		}
		e.queue.Poll()

		var err error
		switch ev.Kind {
		case event.Merge:
			var n *dendrogram.Node
			n, err = e.handleMerge(ev)
			if n != nil {
				last = n
			}
		case event.OutOfCell:
			err = e.handleOutOfCell(ev)
		}
		if err != nil {
			return last, err
		}

		if cfg.DebugInvariants {
			if err := e.checkMassConservation(); err != nil {
				return last, err
			}
		}
	}
	return last, nil
}

func (e *engine) newGlyph(pos orb.Point, weight int) handle.GlyphID {
	id := handle.GlyphID(len(e.glyphs))
	e.glyphs = append(e.glyphs, glyph.New(id, pos, weight, e.cfg.Track))
	return id
}

func (e *engine) lookup(id handle.GlyphID) *glyph.Glyph {
	if id == handle.NoGlyph || int(id) >= len(e.glyphs) {
		return nil
	}
	return e.glyphs[id]
}

// boundingBox computes the axis-aligned box containing every particle,
// padded on every side. A degenerate (single-point or collinear) input
// still gets a box with positive area.
func boundingBox(particles []geom.Particle, padding float64) orb.Bound {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range particles {
		minX = math.Min(minX, p.Pos.X())
		minY = math.Min(minY, p.Pos.Y())
		maxX = math.Max(maxX, p.Pos.X())
		maxY = math.Max(maxY, p.Pos.Y())
	}
	if padding < 0 {
		padding = 0
	}
	if maxX-minX < 1e-9 {
		maxX += 1
		minX -= 1
	}
	if maxY-minY < 1e-9 {
		maxY += 1
		minY -= 1
	}
	return orb.Bound{
		Min: orb.Point{minX - padding, minY - padding},
		Max: orb.Point{maxX + padding, maxY + padding},
	}
}

// peekValid discards stale heads (dead participant, or an OutOfCell
// whose cell was split away) until the head is live or the queue is
// empty.
func (e *engine) peekValid() (event.Event, bool) {
	for {
		ev, ok := e.queue.Peek()
		if !ok {
			return event.Event{}, false
		}
		if e.isStale(ev) {
			e.reseedStaleOutOfCell(ev)
			e.queue.Discard()
			continue
		}
		return ev, true
	}
}

// reseedStaleOutOfCell handles the case where ev is a stale OutOfCell
// event whose cell was split away from under it: the glyph itself is
// still alive and growing, so its next cached crossing is promoted in
// place of the one being discarded, keeping it driving its own growth
// instead of going silent until some other event happens to touch it.
func (e *engine) reseedStaleOutOfCell(ev event.Event) {
	if ev.Kind != event.OutOfCell {
		return
	}
	g := e.lookup(ev.Glyph)
	if g == nil || g.State != glyph.Alive {
		return
	}
	if e.qt.Cell(ev.Cell).IsLeaf() {
		return
	}
	g.PopOutOfCellInto(e.queue)
}

func (e *engine) isStale(ev event.Event) bool {
	switch ev.Kind {
	case event.Merge:
		a, b := e.lookup(ev.A), e.lookup(ev.B)
		return a == nil || a.State != glyph.Alive || b == nil || b.State != glyph.Alive
	case event.OutOfCell:
		g := e.lookup(ev.Glyph)
		if g == nil || g.State != glyph.Alive {
			return true
		}
		return !e.qt.Cell(ev.Cell).IsLeaf()
	}
	return false
}

// recordLeafMerges runs the first-merge recorder for every glyph in
// leaf against every other glyph in leaf, used both during
// initialisation and as the repair pass after a join.
func (e *engine) recordLeafMerges(leafID handle.CellID) {
	glyphs := e.qt.Cell(leafID).Glyphs
	for _, p := range glyphs {
		e.rec.Start(p)
		e.recordCandidates(p, glyphs)
		e.rec.AddEventsTo(e.queue, e.cfg.Robust)
	}
}

// recordCandidates runs the first-merge recorder's scan for probe over
// candidates, routing heavy probes through the opt-in big-glyph
// parallel path (see Config.BigGlyphThreshold).
func (e *engine) recordCandidates(probe handle.GlyphID, candidates []handle.GlyphID) {
	if e.cfg.BigGlyphThreshold > 0 {
		if g := e.lookup(probe); g != nil && g.Weight >= e.cfg.BigGlyphThreshold {
			e.rec.RecordAllBig(candidates, e.cfg.BigGlyphThreshold)
			return
		}
	}
	e.rec.RecordAll(candidates)
}

// checkMassConservation is the optional debug-mode invariant checker:
// total weight across alive glyphs must equal the input total after
// every event.
func (e *engine) checkMassConservation() error {
	sum := 0
	for _, g := range e.glyphs {
		if g.State == glyph.Alive {
			sum += g.Weight
		}
	}
	if sum != e.totalMass {
		return fmt.Errorf("engine: mass conservation violated: alive mass %d, expected %d", sum, e.totalMass)
	}
	return nil
}
