package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// LinearGrow is the default grow function: each glyph occupies a square
// of half-width r(t) = t*weight, so two glyphs touch when the Chebyshev
// distance between their centres equals the sum of their half-widths.
type LinearGrow struct{}

func (LinearGrow) Name() string { return "linear-squares" }

func (LinearGrow) TouchTime(a, b Particle) float64 {
	d := chebyshevDistance(a.Pos, b.Pos)
	sumW := float64(a.Weight + b.Weight)
	if d == 0 {
		// Coincident points are always touching. A negative-infinity touch
		// time would be the literal answer, but every consumer only ever
		// compares against t>=0, so a direct 0 is equivalent and avoids
		// threading a sentinel through every call site.
		return 0
	}
	return d / sumW
}

func (LinearGrow) TouchTimeRect(rect orb.Bound, p Particle) float64 {
	d := chebyshevDistanceToRect(rect, p.Pos)
	if d == 0 {
		return 0
	}
	return d / float64(p.Weight)
}

func (LinearGrow) ExitTime(p Particle, rect orb.Bound, side Side) float64 {
	d := distanceToSideLine(rect, side, p.Pos)
	if d == 0 {
		return 0
	}
	return d / float64(p.Weight)
}

func (LinearGrow) SizeAt(p Particle, t float64) orb.Bound {
	return squareAt(p.Pos, t*float64(p.Weight))
}

// LogGrow grows a square whose half-width is logarithmic in time:
// r(t) = weight * log(1+t). Touch/exit times invert that relation.
type LogGrow struct{}

func (LogGrow) Name() string { return "log-squares" }

func (LogGrow) TouchTime(a, b Particle) float64 {
	d := chebyshevDistance(a.Pos, b.Pos)
	sumW := float64(a.Weight + b.Weight)
	if d == 0 {
		return 0
	}
	// d = sumW * log(1+t)  =>  t = exp(d/sumW) - 1
	return math.Exp(d/sumW) - 1
}

func (LogGrow) TouchTimeRect(rect orb.Bound, p Particle) float64 {
	d := chebyshevDistanceToRect(rect, p.Pos)
	if d == 0 {
		return 0
	}
	return math.Exp(d/float64(p.Weight)) - 1
}

func (LogGrow) ExitTime(p Particle, rect orb.Bound, side Side) float64 {
	d := distanceToSideLine(rect, side, p.Pos)
	if d == 0 {
		return 0
	}
	return math.Exp(d/float64(p.Weight)) - 1
}

func (LogGrow) SizeAt(p Particle, t float64) orb.Bound {
	return squareAt(p.Pos, float64(p.Weight)*math.Log(1+t))
}

// AreaLinearGrow grows a square whose *area* increases linearly in time:
// area(t) = weight*t, i.e. half-width r(t) = sqrt(weight*t)/2.
type AreaLinearGrow struct{}

func (AreaLinearGrow) Name() string { return "area-linear-squares" }

func (AreaLinearGrow) TouchTime(a, b Particle) float64 {
	d := chebyshevDistance(a.Pos, b.Pos)
	if d == 0 {
		return 0
	}
	sumSqrtW := math.Sqrt(float64(a.Weight)) + math.Sqrt(float64(b.Weight))
	// d = (sqrt(t)/2) * sumSqrtW  =>  t = (2d/sumSqrtW)^2
	x := 2 * d / sumSqrtW
	return x * x
}

func (AreaLinearGrow) TouchTimeRect(rect orb.Bound, p Particle) float64 {
	d := chebyshevDistanceToRect(rect, p.Pos)
	if d == 0 {
		return 0
	}
	x := 2 * d / math.Sqrt(float64(p.Weight))
	return x * x
}

func (AreaLinearGrow) ExitTime(p Particle, rect orb.Bound, side Side) float64 {
	d := distanceToSideLine(rect, side, p.Pos)
	if d == 0 {
		return 0
	}
	x := 2 * d / math.Sqrt(float64(p.Weight))
	return x * x
}

func (AreaLinearGrow) SizeAt(p Particle, t float64) orb.Bound {
	r := math.Sqrt(float64(p.Weight)*t) / 2
	return squareAt(p.Pos, r)
}

// CircularGrow grows a circular disk of radius r(t) = t*weight, bounded
// by its Euclidean (not Chebyshev) footprint.
type CircularGrow struct{}

func (CircularGrow) Name() string { return "circular" }

func (CircularGrow) TouchTime(a, b Particle) float64 {
	d := euclideanDistance(a.Pos, b.Pos)
	sumW := float64(a.Weight + b.Weight)
	if d == 0 {
		return 0
	}
	return d / sumW
}

func (CircularGrow) TouchTimeRect(rect orb.Bound, p Particle) float64 {
	d := euclideanDistanceToRect(rect, p.Pos)
	if d == 0 {
		return 0
	}
	return d / float64(p.Weight)
}

func (CircularGrow) ExitTime(p Particle, rect orb.Bound, side Side) float64 {
	// The side is an axis-aligned line; Euclidean distance to it equals
	// the coordinate gap, same as the Chebyshev case.
	d := distanceToSideLine(rect, side, p.Pos)
	if d == 0 {
		return 0
	}
	return d / float64(p.Weight)
}

func (CircularGrow) SizeAt(p Particle, t float64) orb.Bound {
	// Bounding square of the disk, for quadtree membership tests.
	return squareAt(p.Pos, t*float64(p.Weight))
}

// ByName resolves one of the grow functions above by its Name(), for
// CLI flag selection. The empty string resolves to the default,
// LinearGrow.
func ByName(name string) (GrowFunc, bool) {
	switch name {
	case "", "linear-squares":
		return LinearGrow{}, true
	case "log-squares":
		return LogGrow{}, true
	case "area-linear-squares":
		return AreaLinearGrow{}, true
	case "circular":
		return CircularGrow{}, true
	default:
		return nil, false
	}
}
