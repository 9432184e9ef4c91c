package story

import (
	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/topology"
)

// AssignRampDirections points every ramp toward its lowest neighbor. Ties go
// to the first neighbor in North, East, South, West order. A ramp with no
// labeled neighbor gets Unknown. Non-ramps have their direction cleared.
func AssignRampDirections(g *topology.Graph) {
	for _, r := range g.Rooms() {
		if !r.IsRamp() {
			r.RampDirection = layout.NoDirection
			continue
		}
		r.RampDirection = descent(g, r)
	}
}

func descent(g *topology.Graph, ramp *layout.Room) layout.Direction {
	dir := layout.Unknown
	lowest := 0
	found := false

	for _, n := range g.Neighbors(ramp) {
		level, ok := n.Room.Story.Level()
		if !ok {
			continue
		}
		if !found || level < lowest {
			lowest = level
			dir = n.Dir
			found = true
		}
	}
	return dir
}
