package quadtree

import (
	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/handle"
)

var allSides = [4]geom.Side{geom.North, geom.East, geom.South, geom.West}

// rewireNeighboursOnSplit updates the neighbour lists after a split:
// each neighbour of the old cell replaces it with whichever new children
// overlap their adjoining side (open-interval test), and the four new
// children become each other's immediate neighbours on their shared
// internal sides.
func (qt *Quadtree) rewireNeighboursOnSplit(old handle.CellID, children [4]handle.CellID) {
	oldNeighbours := qt.cells[old].Neighbours

	for _, side := range allSides {
		opp := side.Opposite()
		a, b := quadrantChildren(side) // the two children bordering this side
		for _, n := range oldNeighbours[side] {
			removeCell(&qt.cells[n].Neighbours[opp], old)
			for _, childIdx := range [2]int{a, b} {
				child := children[childIdx]
				if overlapsOnSide(qt.cells[child].Bound, qt.cells[n].Bound, side) {
					qt.cells[child].Neighbours[side] = appendUnique(qt.cells[child].Neighbours[side], n)
					qt.cells[n].Neighbours[opp] = appendUnique(qt.cells[n].Neighbours[opp], child)
				}
			}
		}
	}

	// Children become each other's immediate neighbours on the shared
	// internal sides.
	nwID, neID, swID, seID := children[nw], children[ne], children[sw], children[se]
	link := func(a handle.CellID, sideA geom.Side, b handle.CellID, sideB geom.Side) {
		qt.cells[a].Neighbours[sideA] = appendUnique(qt.cells[a].Neighbours[sideA], b)
		qt.cells[b].Neighbours[sideB] = appendUnique(qt.cells[b].Neighbours[sideB], a)
	}
	link(nwID, geom.East, neID, geom.West)
	link(swID, geom.East, seID, geom.West)
	link(nwID, geom.South, swID, geom.North)
	link(neID, geom.South, seID, geom.North)
}

// inheritNeighboursOnJoin performs the join-time neighbour inheritance:
// the parent inherits the union of its children's neighbour lists per
// side, and every neighbour that referenced one of the joined children
// is asked to replace it with the parent.
func (qt *Quadtree) inheritNeighboursOnJoin(parent handle.CellID, children [4]handle.CellID) {
	for _, side := range allSides {
		a, b := quadrantChildren(side)
		opp := side.Opposite()
		var inherited []handle.CellID
		for _, childIdx := range [2]int{a, b} {
			child := children[childIdx]
			for _, n := range qt.cellNeighboursBeforeClear(child, side) {
				inherited = appendUnique(inherited, n)
				removeCell(&qt.cells[n].Neighbours[opp], child)
				qt.cells[n].Neighbours[opp] = appendUnique(qt.cells[n].Neighbours[opp], parent)
			}
		}
		qt.cells[parent].Neighbours[side] = inherited
	}
}

// cellNeighboursBeforeClear returns a copy since the caller mutates
// Neighbours slices of neighbours while iterating.
func (qt *Quadtree) cellNeighboursBeforeClear(id handle.CellID, side geom.Side) []handle.CellID {
	return append([]handle.CellID(nil), qt.cells[id].Neighbours[side]...)
}

// overlapsOnSide is the open-interval overlap test along the axis
// perpendicular to side: for North/South it compares X ranges, for
// East/West it compares Y ranges.
func overlapsOnSide(a, b orb.Bound, side geom.Side) bool {
	if side == geom.North || side == geom.South {
		return a.Min.X() < b.Max.X() && b.Min.X() < a.Max.X()
	}
	return a.Min.Y() < b.Max.Y() && b.Min.Y() < a.Max.Y()
}

// OverlapsOnSide exports overlapsOnSide for the engine's out-of-cell
// handling, which needs to skip neighbours whose opposite side does
// not actually overlap the crossing glyph's interval.
func OverlapsOnSide(a, b orb.Bound, side geom.Side) bool {
	return overlapsOnSide(a, b, side)
}

func removeCell(list *[]handle.CellID, id handle.CellID) {
	for i, c := range *list {
		if c == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func appendUnique(list []handle.CellID, id handle.CellID) []handle.CellID {
	for _, c := range list {
		if c == id {
			return list
		}
	}
	return append(list, id)
}
