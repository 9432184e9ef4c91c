package topology

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// DefaultDoorTypes are the generator door types that produce a real,
// walk-through doorway.
var DefaultDoorTypes = []int{1, 2, 4, 6, 7}

// DoorTypes is the set of door types that disqualify a room from being a ramp.
type DoorTypes struct {
	set mapset.Set[int]
}

// NewDoorTypes builds a DoorTypes set. With no arguments it uses DefaultDoorTypes.
func NewDoorTypes(types ...int) DoorTypes {
	if len(types) == 0 {
		types = DefaultDoorTypes
	}
	set := mapset.New[int]()
	for _, t := range types {
		set.Put(t)
	}
	return DoorTypes{set: set}
}

// Traversable reports whether doorType is a real doorway.
func (dt DoorTypes) Traversable(doorType int) bool {
	return dt.set.Has(doorType)
}

// Detection summarizes one ramp detection pass.
type Detection struct {
	Candidates []*layout.Room // Rooms that passed the eligibility filter
	Ramps      []*layout.Room // Candidates confirmed as graph bridges
}

// Eligible reports whether r may be tested as a ramp: it is one tile wide or
// tall, holds no traversable door, and has exactly two neighbors lying on
// opposite sides.
func Eligible(g *Graph, r *layout.Room, doors []*layout.Door, types DoorTypes) bool {
	if !r.Narrow() {
		return false
	}
	for _, door := range doors {
		if r.Contains(door.X, door.Y) && types.Traversable(door.Type) {
			return false
		}
	}
	return opposite(g.Neighbors(r))
}

// DetectRamps marks every eligible room whose removal splits the adjacency
// graph as a ramp. All kinds are reset first. Each candidate is tested
// against the complete graph, so the outcome for one room never depends on
// another room having been marked.
func DetectRamps(g *Graph, doors []*layout.Door, types DoorTypes) Detection {
	for _, r := range g.rooms {
		r.Kind = layout.Normal
	}

	var det Detection
	baseline := len(g.Components())

	for _, r := range g.rooms {
		if !Eligible(g, r, doors, types) {
			continue
		}
		det.Candidates = append(det.Candidates, r)
		if len(g.ComponentsWithout(r)) > baseline {
			det.Ramps = append(det.Ramps, r)
		}
	}

	// Marked after the loop so every test above saw the same graph.
	for _, r := range det.Ramps {
		r.Kind = layout.Ramp
	}

	layout.SortRooms(det.Candidates)
	layout.SortRooms(det.Ramps)
	return det
}
