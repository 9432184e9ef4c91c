package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind classifies a room for story assignment.
type Kind int

const (
	Normal Kind = iota
	Ramp        // Narrow connector between two stories
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	if k == Ramp {
		return "ramp"
	}
	return "normal"
}

// Story is an optional signed story level. The zero value is unassigned.
type Story struct {
	level    int
	assigned bool
}

// StoryOf returns an assigned story at the given level.
func StoryOf(level int) Story {
	return Story{level: level, assigned: true}
}

// Unassigned is the story of a room no stage has labeled yet.
var Unassigned Story

// Level returns the story level and whether it has been assigned.
func (s Story) Level() (int, bool) {
	return s.level, s.assigned
}

// Assigned reports whether s holds a level.
func (s Story) Assigned() bool {
	return s.assigned
}

// Is reports whether s is assigned and equal to level.
func (s Story) Is(level int) bool {
	return s.assigned && s.level == level
}

// Or returns the level, or def when unassigned.
func (s Story) Or(def int) int {
	if !s.assigned {
		return def
	}
	return s.level
}

func (s Story) String() string {
	if !s.assigned {
		return "unassigned"
	}
	return strconv.Itoa(s.level)
}

// MarshalJSON encodes an unassigned story as null.
func (s Story) MarshalJSON() ([]byte, error) {
	if !s.assigned {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.level)), nil
}

// UnmarshalJSON accepts an integer or null.
func (s *Story) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Unassigned
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("layout: story: %w", err)
	}
	*s = StoryOf(n)
	return nil
}

// Room is one axis-aligned rectangle of the dungeon. (X, Y) is the
// bottom-left cell and identifies the room within its dungeon.
type Room struct {
	X, Y int
	W, H int

	Rotunda bool

	Kind          Kind
	Story         Story
	RampDirection Direction // Only meaningful when Kind == Ramp

	// Structure is filled in by the walls stage; nil until then.
	Structure *Structure

	extra fields
}

// NewRoom creates a normal, unassigned room.
func NewRoom(x, y, w, h int) *Room {
	return &Room{X: x, Y: y, W: w, H: h}
}

// Origin returns the room's identifying corner.
func (r *Room) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Contains reports whether the cell (x, y) lies inside the room's footprint.
func (r *Room) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Narrow reports whether the room is a single tile wide or tall.
func (r *Room) Narrow() bool {
	return r.W == 1 || r.H == 1
}

// IsRamp reports whether the room is currently marked as a ramp.
func (r *Room) IsRamp() bool {
	return r.Kind == Ramp
}

// LongSide returns max(W, H).
func (r *Room) LongSide() int {
	if r.W > r.H {
		return r.W
	}
	return r.H
}

func (r *Room) String() string {
	return fmt.Sprintf("room(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Point is a grid cell.
type Point struct {
	X, Y int
}

// Structure holds the derived wall geometry of a room.
type Structure struct {
	Vault   int
	Ceiling int
	Walls   []Wall
	Exits   []Direction // Rotunda rooms only
}

// Wall is one unit-length wall segment at a given ceiling level.
type Wall struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Dir   Vector `json:"dir"`
	Level int    `json:"level"`
}
