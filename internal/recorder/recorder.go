// Package recorder implements the first-merge recorder: given a probe
// glyph and a candidate set, it finds the k earliest distinct touch
// times (k = MaxMergesToRecord) to tolerate ties and interleaved
// merges, turning an O(k^2) pairwise scan into amortised O(k) work per
// glyph.
package recorder

import (
	"sync"

	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
)

// slot is one of the k (time, {glyphs}) buffer entries, kept sorted by
// At ascending. Equal times within Epsilon accumulate into the same
// slot's Glyphs set, covering near-simultaneous ties.
type slot struct {
	At     float64
	Glyphs []handle.GlyphID
}

// Recorder is a start/record/add-events state machine: Start(p), then
// repeated Record(candidate) calls, then AddEventsTo(queue).
type Recorder struct {
	grow  geom.GrowFunc
	slots []slot // len <= maxSlots, sorted ascending by At

	probe    handle.GlyphID
	lookup   glyph.Lookup
	maxSlots int

	// parallelThreshold: candidate sets at or above this size are
	// recorded with goroutine fan-out; 0 disables fan-out.
	parallelThreshold int
}

// New builds a Recorder. maxSlots is the per-glyph merge-cache capacity
// (default 4, see glyph.DefaultMaxMergesToRecord); parallelThreshold is
// the candidate-set size at or above which RecordAll fans out across
// goroutines (e.g. 1000; 0 disables fan-out).
func New(grow geom.GrowFunc, lookup glyph.Lookup, maxSlots int, parallelThreshold int) *Recorder {
	if maxSlots < 1 {
		maxSlots = 1
	}
	return &Recorder{grow: grow, lookup: lookup, maxSlots: maxSlots, parallelThreshold: parallelThreshold}
}

// Start fixes the probe glyph and clears the slot buffer.
func (r *Recorder) Start(p handle.GlyphID) {
	r.probe = p
	r.slots = r.slots[:0]
}

// sameTimeEpsilon merges touch times within this tolerance into one
// slot, so near-simultaneous merges are treated as ties and replay
// deterministically.
const sameTimeEpsilon = 1e-9

// Record considers one candidate glyph; skipped if dead or the probe
// itself. It computes the touch time and folds it into the k-slot
// buffer, keeping it sorted and capped at maxSlots.
func (r *Recorder) Record(candidate handle.GlyphID) {
	cg := r.lookup(candidate)
	if cg == nil || cg.State != glyph.Alive || candidate == r.probe {
		return
	}
	pg := r.lookup(r.probe)
	t := r.grow.TouchTime(pg.Particle(), cg.Particle())
	r.merge(t, candidate)
}

// merge folds one (time, glyph) observation into the sorted slot buffer.
func (r *Recorder) merge(t float64, g handle.GlyphID) {
	for i := range r.slots {
		if t < r.slots[i].At-sameTimeEpsilon {
			r.insertSlotAt(i, t, g)
			return
		}
		if t <= r.slots[i].At+sameTimeEpsilon {
			r.slots[i].Glyphs = appendUniqueGlyph(r.slots[i].Glyphs, g)
			return
		}
	}
	if len(r.slots) < r.maxSlots {
		r.slots = append(r.slots, slot{At: t, Glyphs: []handle.GlyphID{g}})
	}
}

func (r *Recorder) insertSlotAt(i int, t float64, g handle.GlyphID) {
	r.slots = append(r.slots, slot{})
	copy(r.slots[i+1:], r.slots[i:])
	r.slots[i] = slot{At: t, Glyphs: []handle.GlyphID{g}}
	if len(r.slots) > r.maxSlots {
		r.slots = r.slots[:r.maxSlots]
	}
}

func appendUniqueGlyph(list []handle.GlyphID, g handle.GlyphID) []handle.GlyphID {
	for _, h := range list {
		if h == g {
			return list
		}
	}
	return append(list, g)
}

// RecordAll records every candidate, fanning out across goroutines when
// len(candidates) >= parallelThreshold (and parallelThreshold > 0). The
// per-goroutine partial recorders are combined slot-wise; the combine
// step is associative and idempotent on equal timestamps, so the result
// does not depend on how candidates were partitioned.
func (r *Recorder) RecordAll(candidates []handle.GlyphID) {
	if r.parallelThreshold <= 0 || len(candidates) < r.parallelThreshold {
		for _, c := range candidates {
			r.Record(c)
		}
		return
	}

	workers := 4
	chunks := splitEvenly(candidates, workers)
	partials := make([]*Recorder, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []handle.GlyphID) {
			defer wg.Done()
			pr := New(r.grow, r.lookup, r.maxSlots, 0)
			pr.Start(r.probe)
			for _, c := range chunk {
				pr.Record(c)
			}
			partials[i] = pr
		}(i, chunk)
	}
	wg.Wait()

	for _, pr := range partials {
		for _, s := range pr.slots {
			for _, g := range s.Glyphs {
				r.merge(s.At, g)
			}
		}
	}
}

// RecordAllBig is the opt-in, experimental big-glyph path: it records
// exactly what RecordAll would, but fans candidates out across
// goroutines whenever len(candidates) >= bigThreshold, independent of
// the Recorder's own (generally much higher) parallelThreshold. A
// heavy probe glyph tends to get re-scanned far more often than
// average as it keeps absorbing neighbours, so it is worth
// parallelising its scans even when the candidate set alone would not
// normally justify the goroutine overhead. Output is identical to
// RecordAll for the same candidates (verified in recorder_test.go);
// this only changes how the work is scheduled.
func (r *Recorder) RecordAllBig(candidates []handle.GlyphID, bigThreshold int) {
	if bigThreshold <= 0 {
		r.RecordAll(candidates)
		return
	}
	saved := r.parallelThreshold
	if r.parallelThreshold <= 0 || bigThreshold < r.parallelThreshold {
		r.parallelThreshold = bigThreshold
	}
	r.RecordAll(candidates)
	r.parallelThreshold = saved
}

func splitEvenly(items []handle.GlyphID, n int) [][]handle.GlyphID {
	if n < 1 {
		n = 1
	}
	out := make([][]handle.GlyphID, 0, n)
	size := (len(items) + n - 1) / n
	if size < 1 {
		size = 1
	}
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// Earliest returns the single earliest touch time(s) recorded, or false
// if nothing was recorded — the non-degenerate "first merge" result.
func (r *Recorder) Earliest() (at float64, glyphs []handle.GlyphID, ok bool) {
	if len(r.slots) == 0 {
		return 0, nil, false
	}
	return r.slots[0].At, r.slots[0].Glyphs, true
}

// AddEventsTo emits the earliest slot's Merge events into q and
// registers the probe in each partner's tracked_by. When robust is
// true, every slot is emitted into q the same way, instead of only the
// first. Otherwise the remaining k-1 slots are stashed into the
// probe's own per-glyph merge-event cache (glyph.RecordMerge) rather
// than discarded — they are promoted later, one at a time, by
// glyph.PopMergeInto when the probe's active queued merge goes stale.
func (r *Recorder) AddEventsTo(q event.Queue, robust bool) {
	if len(r.slots) == 0 {
		return
	}
	emit := func(s slot) {
		for _, g := range s.Glyphs {
			q.Add(event.NewMerge(r.probe, g, s.At))
			partner := r.lookup(g)
			if partner != nil && partner.TrackedBy != nil {
				partner.TrackedBy[r.probe] = struct{}{}
			}
		}
	}
	emit(r.slots[0])
	if robust {
		for _, s := range r.slots[1:] {
			emit(s)
		}
		return
	}
	probe := r.lookup(r.probe)
	for _, s := range r.slots[1:] {
		for _, g := range s.Glyphs {
			probe.RecordMerge(g, s.At)
		}
	}
}
