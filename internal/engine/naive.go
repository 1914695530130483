package engine

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// RunNaive is the O(n^2 log n) pairwise reference implementation (spec
// §8 "Round-trip / equivalence"): every pair's touch time is queued up
// front, and each merge only has to compute n new pairwise times for
// the glyph it produced. It never touches internal/quadtree, so it
// serves as an independent check on the spatially-indexed Run.
func RunNaive(particles []geom.Particle, cfg Config) (*dendrogram.Node, error) {
	if len(particles) == 0 {
		return nil, ErrNoGlyphs
	}
	for _, p := range particles {
		if p.Weight < 1 {
			return nil, ErrInvalidWeight
		}
	}
	grow := cfg.grow()

	var glyphs []*glyph.Glyph
	nodes := map[handle.GlyphID]*dendrogram.Node{}
	q := event.NewSimple()

	newGlyph := func(pos orb.Point, weight int) handle.GlyphID {
		id := handle.GlyphID(len(glyphs))
		glyphs = append(glyphs, glyph.New(id, pos, weight, false))
		return id
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph {
		if id == handle.NoGlyph || int(id) >= len(glyphs) {
			return nil
		}
		return glyphs[id]
	}

	for _, p := range particles {
		id := newGlyph(p.Pos, p.Weight)
		lookup(id).State = glyph.Alive
		nodes[id] = dendrogram.NewLeaf(id, p.Pos, p.Weight)
	}
	for i := handle.GlyphID(0); int(i) < len(glyphs); i++ {
		for j := i + 1; int(j) < len(glyphs); j++ {
			at := grow.TouchTime(glyphs[i].Particle(), glyphs[j].Particle())
			q.Add(event.NewMerge(i, j, at))
		}
	}

	numAlive := len(glyphs)
	var last *dendrogram.Node
	for numAlive > 1 {
		ev, ok := q.Poll()
		if !ok {
			break
		}
		a, b := lookup(ev.A), lookup(ev.B)
		if a == nil || a.State != glyph.Alive || b == nil || b.State != glyph.Alive {
			continue
		}

		weight := a.Weight + b.Weight
		aw, bw := float64(a.Weight), float64(b.Weight)
		pos := orb.Point{
			(a.Pos.X()*aw + b.Pos.X()*bw) / float64(weight),
			(a.Pos.Y()*aw + b.Pos.Y()*bw) / float64(weight),
		}
		id := newGlyph(pos, weight)
		merged := lookup(id)
		merged.State = glyph.Alive
		a.State = glyph.Dead
		b.State = glyph.Dead
		numAlive--

		hc := dendrogram.NewMerge(id, pos, weight, ev.At, nodes[a.ID], nodes[b.ID])
		nodes[id] = hc
		last = hc

		for gid := handle.GlyphID(0); int(gid) < len(glyphs); gid++ {
			if gid == id {
				continue
			}
			other := lookup(gid)
			if other.State != glyph.Alive {
				continue
			}
			at := grow.TouchTime(merged.Particle(), other.Particle())
			q.Add(event.NewMerge(id, gid, at))
		}
	}
	return last, nil
}
