// Package topology analyzes how the rooms of a dungeon touch: which rooms
// share an edge, which groups are connected, which narrow rooms are bridges
// between otherwise separate parts, and how chained bridges collapse into a
// single ramp.
package topology

import "github.com/lawnchairsociety/dungeonstory/internal/layout"

// AdjacencyDirection reports on which side of a the room b lies. Two rooms
// are adjacent when they share a unit edge and their spans on the other axis
// overlap by at least one cell. Corner contact does not count.
func AdjacencyDirection(a, b *layout.Room) layout.Direction {
	if a == b || (a.X == b.X && a.Y == b.Y) {
		return layout.NoDirection
	}

	overlapY := a.Y < b.Y+b.H && a.Y+a.H > b.Y
	overlapX := a.X < b.X+b.W && a.X+a.W > b.X

	switch {
	case overlapY && b.X+b.W == a.X:
		return layout.West
	case overlapY && a.X+a.W == b.X:
		return layout.East
	case overlapX && b.Y+b.H == a.Y:
		return layout.South
	case overlapX && a.Y+a.H == b.Y:
		return layout.North
	}
	return layout.NoDirection
}

// Adjacent reports whether a and b share an edge.
func Adjacent(a, b *layout.Room) bool {
	return AdjacencyDirection(a, b) != layout.NoDirection
}

// Neighbor is an adjacent room and the side of the subject it lies on.
type Neighbor struct {
	Room *layout.Room
	Dir  layout.Direction
}

// opposite reports whether exactly two neighbors sit on opposing sides.
func opposite(neighbors []Neighbor) bool {
	if len(neighbors) != 2 {
		return false
	}
	return neighbors[0].Dir.Opposite() == neighbors[1].Dir
}
