package engine

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/quadtree"
)

func pt(x, y float64, w int) geom.Particle {
	return geom.Particle{Pos: orb.Point{x, y}, Weight: w}
}

func TestRunTwoEqualGlyphsMergeAtHalfDistance(t *testing.T) {
	root, err := Run([]geom.Particle{pt(0, 0, 1), pt(10, 0, 1)}, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.InDelta(t, 5.0, root.At, 1e-6)
	assert.Equal(t, 2, root.Weight)
	assert.Len(t, root.CreatedFrom, 2)
	for _, child := range root.CreatedFrom {
		assert.True(t, child.IsLeaf())
	}
}

func TestRunThreeInARowMergesSequentially(t *testing.T) {
	root, err := Run([]geom.Particle{pt(0, 0, 1), pt(10, 0, 1), pt(30, 0, 1)}, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.InDelta(t, 25.0/3.0, root.At, 1e-6)
	assert.Equal(t, 3, root.Weight)
	require.Len(t, root.CreatedFrom, 2)

	var leaf, inner *dendrogram.Node
	for _, c := range root.CreatedFrom {
		if c.IsLeaf() {
			leaf = c
		} else {
			inner = c
		}
	}
	require.NotNil(t, leaf)
	require.NotNil(t, inner)
	assert.InDelta(t, 5.0, inner.At, 1e-6)
}

func TestRunCoincidentPairMergesAtZero(t *testing.T) {
	root, err := Run([]geom.Particle{pt(0, 0, 3), pt(0, 0, 2), pt(5, 5, 1)}, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.InDelta(t, 5.0/6.0, root.At, 1e-6)
	assert.Equal(t, 6, root.Weight)

	var inner *dendrogram.Node
	for _, c := range root.CreatedFrom {
		if !c.IsLeaf() {
			inner = c
		}
	}
	require.NotNil(t, inner)
	assert.InDelta(t, 0.0, inner.At, 1e-9)
	assert.Equal(t, 5, inner.Weight)
}

func TestRunNestedCascadeFusesThreeIntoOneNode(t *testing.T) {
	root, err := Run([]geom.Particle{pt(0, 0, 1), pt(2, 0, 1), pt(1, 1, 1)}, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.InDelta(t, 0.5, root.At, 1e-6)
	assert.Equal(t, 3, root.Weight)
	assert.Len(t, root.CreatedFrom, 3, "a nested cascade fuses all three leaves into one dendrogram node")
	for _, c := range root.CreatedFrom {
		assert.True(t, c.IsLeaf())
	}
}

func TestRunGridOfTwentyFiveProducesSingleRootCoveringAllMass(t *testing.T) {
	var particles []geom.Particle
	totalWeight := 0
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			w := 1 + (x+y)%3
			particles = append(particles, pt(float64(x)*10, float64(y)*10, w))
			totalWeight += w
		}
	}
	root, err := Run(particles, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, totalWeight, root.Weight)
	assert.Len(t, root.Leaves(), len(particles))
}

func TestRunCapacityStressWithManyRandomGlyphs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 300
	particles := make([]geom.Particle, n)
	totalWeight := 0
	for i := range particles {
		w := 1 + rng.Intn(4)
		particles[i] = pt(rng.Float64()*1000, rng.Float64()*1000, w)
		totalWeight += w
	}
	cfg := DefaultConfig()
	cfg.MaxGlyphsPerCell = 4

	root, err := Run(particles, cfg)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, totalWeight, root.Weight)
	assert.Len(t, root.Leaves(), n)
	assertMonotoneAndMassConserving(t, root)
}

// assertMonotoneAndMassConserving checks dendrogram-monotonicity and
// mass-conservation (every merge node's weight is the sum of its
// children's) by walking every node once.
func assertMonotoneAndMassConserving(t *testing.T, root *dendrogram.Node) {
	t.Helper()
	root.Walk(func(n *dendrogram.Node) {
		if n.IsLeaf() {
			return
		}
		sum := 0
		for _, c := range n.CreatedFrom {
			assert.LessOrEqualf(t, c.At, n.At, "child merge time must not exceed parent's")
			sum += c.Weight
		}
		assert.Equal(t, sum, n.Weight)
	})
}

func TestRunMassConservedAcrossRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		n := 5 + rng.Intn(40)
		particles := make([]geom.Particle, n)
		totalWeight := 0
		for i := range particles {
			w := 1 + rng.Intn(5)
			particles[i] = pt(rng.Float64()*100, rng.Float64()*100, w)
			totalWeight += w
		}
		root, err := Run(particles, DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, root)
		assert.Equal(t, totalWeight, root.Weight)
		assert.Len(t, root.Leaves(), n)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	_, err := Run(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoGlyphs)
}

func TestRunRejectsZeroWeight(t *testing.T) {
	_, err := Run([]geom.Particle{pt(0, 0, 0), pt(1, 1, 1)}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestRunIsReproducibleForTheSameInput(t *testing.T) {
	particles := []geom.Particle{pt(0, 0, 2), pt(10, 0, 1), pt(3, 8, 3), pt(-4, -4, 1)}
	root1, err := Run(particles, DefaultConfig())
	require.NoError(t, err)
	root2, err := Run(particles, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, root1.At, root2.At, 1e-9)
	assert.Equal(t, root1.Weight, root2.Weight)
}

func TestRunMatchesNaiveOnSmallRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 8; trial++ {
		n := 4 + rng.Intn(20)
		particles := make([]geom.Particle, n)
		for i := range particles {
			w := 1 + rng.Intn(3)
			particles[i] = pt(rng.Float64()*50, rng.Float64()*50, w)
		}
		cfg := DefaultConfig()
		quadtreeRoot, err := Run(particles, cfg)
		require.NoError(t, err)
		naiveRoot, err := RunNaive(particles, cfg)
		require.NoError(t, err)
		assert.InDelta(t, naiveRoot.At, quadtreeRoot.At, 1e-5,
			"trial %d: quadtree and naive roots must merge at the same time", trial)
		assert.Equal(t, naiveRoot.Weight, quadtreeRoot.Weight)
	}
}

func TestRunNoOutOfCellEventCrossesTheRootBoundary(t *testing.T) {
	// Two glyphs sharing the unsplit root leaf never produce an
	// out-of-cell crossing, since the root cell's own sides are never
	// "non-boundary" — there's no neighbour beyond the outermost side to
	// cross into.
	particles := []geom.Particle{pt(0, 0, 1), pt(1, 0, 1)}
	qt := quadtree.New(boundingBox(particles, DefaultConfig().BoundPadding), geom.LinearGrow{}, nil, 10, 1e-4)
	assert.Empty(t, qt.NonBoundarySides(qt.Root()))

	root, err := Run(particles, DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, root)
}

func TestCursorReplaysRootInSingleStep(t *testing.T) {
	root, err := Run([]geom.Particle{pt(0, 0, 1), pt(10, 0, 1)}, DefaultConfig())
	require.NoError(t, err)

	c := dendrogram.NewCursor(root)
	applied, total := c.Position()
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, total)

	n, ok := c.Advance()
	require.True(t, ok)
	assert.Same(t, root, n)
	assert.True(t, c.Done())

	n, ok = c.Retreat()
	require.True(t, ok)
	assert.Same(t, root, n)
}
