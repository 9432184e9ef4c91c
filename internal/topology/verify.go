package topology

import (
	"errors"
	"fmt"
)

var (
	ErrNotBridge     = errors.New("topology: ramp is not a bridge")
	ErrAdjacentRamps = errors.New("topology: adjacent ramps")
)

// VerifyBridges checks that removing any ramp splits the graph.
func VerifyBridges(g *Graph) error {
	baseline := len(g.Components())
	for _, r := range g.rooms {
		if !r.IsRamp() {
			continue
		}
		if len(g.ComponentsWithout(r)) <= baseline {
			return fmt.Errorf("%w: %s", ErrNotBridge, r)
		}
	}
	return nil
}

// VerifyClusters checks that no two ramps share an edge.
func VerifyClusters(g *Graph) error {
	for _, r := range g.rooms {
		if !r.IsRamp() {
			continue
		}
		for _, n := range g.Neighbors(r) {
			if n.Room.IsRamp() {
				return fmt.Errorf("%w: %s and %s", ErrAdjacentRamps, r, n.Room)
			}
		}
	}
	return nil
}
