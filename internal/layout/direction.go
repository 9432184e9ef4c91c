package layout

import "fmt"

// Direction is a compass direction on the layout grid. The grid's y axis
// grows northward: a room whose top edge touches another room's bottom edge
// lies to the south of it.
type Direction int

const (
	NoDirection Direction = iota // Not adjacent, or not yet assigned
	North
	East
	South
	West
	Unknown // Assigned, but no neighbor could decide it
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case Unknown:
		return "unknown"
	default:
		return ""
	}
}

// ParseDirection converts a string to a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "north":
		return North, nil
	case "east":
		return East, nil
	case "south":
		return South, nil
	case "west":
		return West, nil
	case "unknown":
		return Unknown, nil
	case "":
		return NoDirection, nil
	}
	return NoDirection, fmt.Errorf("layout: unknown direction %q", s)
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	default:
		return d
	}
}

// Cardinal reports whether d is one of the four compass points.
func (d Direction) Cardinal() bool {
	return d >= North && d <= West
}

// Vector returns the unit step for d.
func (d Direction) Vector() Vector {
	switch d {
	case North:
		return Vector{X: 0, Y: 1}
	case East:
		return Vector{X: 1, Y: 0}
	case South:
		return Vector{X: 0, Y: -1}
	case West:
		return Vector{X: -1, Y: 0}
	}
	return Vector{}
}

// AllDirections returns the four cardinal directions in tie-break order.
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// Vector is an integer grid offset, used for door facings and wall runs.
type Vector struct {
	X int `json:"x"`
	Y int `json:"y"`
}
