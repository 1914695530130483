package recorder

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/growing-glyphs/internal/event"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/glyph"
	"github.com/azybler/growing-glyphs/internal/handle"
)

func glyphAt(id handle.GlyphID, x, y float64, w int) *glyph.Glyph {
	g := glyph.New(id, orb.Point{x, y}, w, true)
	g.State = glyph.Alive
	return g
}

func TestRecorderEarliestIsClosest(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 1),
		1: glyphAt(1, 10, 0, 1),
		2: glyphAt(2, 1, 0, 1),
		3: glyphAt(3, 100, 0, 1),
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 4, 0)
	r.Start(0)
	r.Record(1)
	r.Record(2)
	r.Record(3)

	at, glyphs, ok := r.Earliest()
	require.True(t, ok)
	assert.ElementsMatch(t, []handle.GlyphID{2}, glyphs)
	assert.InDelta(t, geom.LinearGrow{}.TouchTime(reg[0].Particle(), reg[2].Particle()), at, 1e-9)
}

func TestRecorderSkipsDeadAndSelf(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 1),
		1: glyphAt(1, 1, 0, 1),
	}
	reg[1].State = glyph.Dead
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 4, 0)
	r.Start(0)
	r.Record(0) // self
	r.Record(1) // dead

	_, _, ok := r.Earliest()
	assert.False(t, ok)
}

func TestRecorderKeepsKSlotsAndTies(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 1),
		1: glyphAt(1, 1, 0, 1),
		2: glyphAt(2, -1, 0, 1), // same distance as 1
		3: glyphAt(3, 2, 0, 1),
		4: glyphAt(4, 3, 0, 1),
		5: glyphAt(5, 4, 0, 1),
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 2, 0)
	r.Start(0)
	for id := handle.GlyphID(1); id <= 5; id++ {
		r.Record(id)
	}
	assert.LessOrEqual(t, len(r.slots), 2)
	at, glyphs, ok := r.Earliest()
	require.True(t, ok)
	assert.InDelta(t, 0.5, at, 1e-6)
	assert.ElementsMatch(t, []handle.GlyphID{1, 2}, glyphs)
}

func TestRecordAllMatchesSerialRegardlessOfFanout(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{0: glyphAt(0, 0, 0, 1)}
	var candidates []handle.GlyphID
	for i := handle.GlyphID(1); i <= 50; i++ {
		reg[i] = glyphAt(i, float64(i), 0, 1)
		candidates = append(candidates, i)
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }

	serial := New(geom.LinearGrow{}, lookup, 4, 0)
	serial.Start(0)
	serial.RecordAll(candidates)

	parallel := New(geom.LinearGrow{}, lookup, 4, 1) // threshold 1: always fans out
	parallel.Start(0)
	parallel.RecordAll(candidates)

	sAt, sGlyphs, sOK := serial.Earliest()
	pAt, pGlyphs, pOK := parallel.Earliest()
	require.Equal(t, sOK, pOK)
	assert.InDelta(t, sAt, pAt, 1e-9)
	assert.ElementsMatch(t, sGlyphs, pGlyphs)
}

func TestAddEventsToNonRobustEmitsOnlyEarliestSlot(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 1),
		1: glyphAt(1, 1, 0, 1),
		2: glyphAt(2, 5, 0, 1),
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 4, 0)
	r.Start(0)
	r.Record(1)
	r.Record(2)

	q := event.NewSimple()
	r.AddEventsTo(q, false)
	assert.Equal(t, 1, q.Size())
	e, _ := q.Peek()
	assert.Equal(t, handle.GlyphID(1), e.B)
	_, tracked := reg[1].TrackedBy[0]
	assert.True(t, tracked)
}

func TestRecordAllBigMatchesRecordAll(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{0: glyphAt(0, 0, 0, 50)}
	var candidates []handle.GlyphID
	for i := handle.GlyphID(1); i <= 30; i++ {
		reg[i] = glyphAt(i, float64(i), 0, 1)
		candidates = append(candidates, i)
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }

	plain := New(geom.LinearGrow{}, lookup, 4, 0)
	plain.Start(0)
	plain.RecordAll(candidates)

	big := New(geom.LinearGrow{}, lookup, 4, 0)
	big.Start(0)
	big.RecordAllBig(candidates, 5)

	pAt, pGlyphs, pOK := plain.Earliest()
	bAt, bGlyphs, bOK := big.Earliest()
	require.Equal(t, pOK, bOK)
	assert.InDelta(t, pAt, bAt, 1e-9)
	assert.ElementsMatch(t, pGlyphs, bGlyphs)
}

func TestRecordAllBigDisabledFallsBackToPlain(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 50),
		1: glyphAt(1, 1, 0, 1),
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 4, 0)
	r.Start(0)
	r.RecordAllBig([]handle.GlyphID{1}, 0)

	_, glyphs, ok := r.Earliest()
	require.True(t, ok)
	assert.ElementsMatch(t, []handle.GlyphID{1}, glyphs)
}

func TestAddEventsToRobustEmitsEverySlot(t *testing.T) {
	reg := map[handle.GlyphID]*glyph.Glyph{
		0: glyphAt(0, 0, 0, 1),
		1: glyphAt(1, 1, 0, 1),
		2: glyphAt(2, 5, 0, 1),
	}
	lookup := func(id handle.GlyphID) *glyph.Glyph { return reg[id] }
	r := New(geom.LinearGrow{}, lookup, 4, 0)
	r.Start(0)
	r.Record(1)
	r.Record(2)

	q := event.NewSimple()
	r.AddEventsTo(q, true)
	assert.Equal(t, 2, q.Size())
}
