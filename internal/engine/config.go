// Package engine implements the clustering engine: initialisation, the
// main event loop, the nested-merge cascade, and out-of-cell handling,
// producing a dendrogram from a set of weighted points.
package engine

import (
	"errors"

	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
)

// ErrNoGlyphs is returned by Run when given an empty input.
var ErrNoGlyphs = errors.New("engine: no glyphs to cluster")

// ErrInvalidWeight is returned when an input particle's weight is < 1.
var ErrInvalidWeight = errors.New("engine: glyph weight must be >= 1")

// Config holds every parameter the engine and its callers can tune.
type Config struct {
	// Grow selects the geometry; nil defaults to geom.LinearGrow{}.
	Grow geom.GrowFunc

	MaxGlyphsPerCell int
	MinCellSize      float64

	MaxMergesToRecord int
	Robust            bool
	Track             bool

	QueueBucketing event.BucketSpec

	// ParallelRecordThreshold: candidate sets at or above this size are
	// recorded with goroutine fan-out (e.g. > 1000); 0 disables fan-out
	// entirely.
	ParallelRecordThreshold int

	// BoundPadding extends the computed input bounding box by this much
	// on every side before building the quadtree root, so a glyph
	// sitting exactly on the convex hull still has room to grow without
	// immediately hitting MinCellSize.
	BoundPadding float64

	// DebugInvariants enables an optional invariant checker (sum of
	// glyphs-represented across alive glyphs equals the initial total
	// after every event); fatal on violation.
	DebugInvariants bool

	// BigGlyphThreshold is an opt-in, experimental optimisation: 0
	// disables it. When a probe glyph's weight is at or above this
	// threshold, its candidate scans are fanned out across goroutines
	// whenever the candidate set holds at least BigGlyphThreshold glyphs
	// (instead of ParallelRecordThreshold), since a heavy glyph tends to be
	// re-scanned disproportionately often as it keeps absorbing
	// neighbours. It changes only how the scan is parallelised, never
	// what it finds, so it is equivalence-checked against the default
	// path in internal/recorder's test suite rather than here.
	BigGlyphThreshold int
}

// DefaultConfig returns a reasonable set of parameter defaults.
func DefaultConfig() Config {
	return Config{
		Grow:                    geom.LinearGrow{},
		MaxGlyphsPerCell:        10,
		MinCellSize:             1e-4,
		MaxMergesToRecord:       glyph.DefaultMaxMergesToRecord,
		Robust:                  false,
		Track:                   true,
		QueueBucketing:          event.BucketSpec{},
		ParallelRecordThreshold: 1000,
		BoundPadding:            1.0,
	}
}

func (c Config) grow() geom.GrowFunc {
	if c.Grow == nil {
		return geom.LinearGrow{}
	}
	return c.Grow
}

func (c Config) maxSlots() int {
	if c.MaxMergesToRecord < 1 {
		return 1
	}
	return c.MaxMergesToRecord
}
