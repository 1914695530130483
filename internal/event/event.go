// Package event implements the tagged merge/out-of-cell events and the
// priority queue that orders them. A single tagged struct covers both
// variants instead of an interface hierarchy, since there are exactly
// two kinds and they share most of their fields.
package event

import (
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// Kind distinguishes the two event variants.
type Kind uint8

const (
	Merge Kind = iota
	OutOfCell
)

// Event is the tagged record surfaced by the global queue. For Merge
// events, A is handle.NoGlyph only inside the nested-merge cascade,
// where it stands for "the glyph currently being grown in-place". For
// OutOfCell events, Cell/Side identify the boundary.
type Event struct {
	Kind Kind
	At   float64

	A, B handle.GlyphID // Merge

	Glyph handle.GlyphID // OutOfCell
	Cell  handle.CellID  // OutOfCell
	Side  geom.Side       // OutOfCell

	seq uint64 // insertion order, final tie-break for total determinism
}

// NewMerge builds a Merge event.
func NewMerge(a, b handle.GlyphID, at float64) Event {
	return Event{Kind: Merge, At: at, A: a, B: b}
}

// NewOutOfCell builds an OutOfCell event.
func NewOutOfCell(g handle.GlyphID, c handle.CellID, side geom.Side, at float64) Event {
	return Event{Kind: OutOfCell, At: at, Glyph: g, Cell: c, Side: side}
}

// less orders events ascending by At, ties broken deterministically by
// (kind, glyph-identity), then insertion order as a last-resort
// tie-break so the ordering is always total.
func less(a, b Event) bool {
	if a.At != b.At {
		return a.At < b.At
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	switch a.Kind {
	case Merge:
		if a.A != b.A {
			return a.A < b.A
		}
		if a.B != b.B {
			return a.B < b.B
		}
	case OutOfCell:
		if a.Glyph != b.Glyph {
			return a.Glyph < b.Glyph
		}
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
	}
	return a.seq < b.seq
}
