package layout

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDuplicateOrigin = errors.New("layout: duplicate room origin")
	ErrInvalidSize     = errors.New("layout: invalid room size")
)

// Door occupies one grid cell of a room and faces one cardinal direction.
type Door struct {
	X, Y  int
	Type  int
	Dir   Vector
	Story Story // Derived from the containing room

	extra fields
}

// Column is a free-standing pillar inside a room.
type Column struct {
	X, Y  int
	Story Story // Derived from the containing room

	extra fields
}

// Dungeon is one generated layout: its rooms, doors and columns.
// Stages mutate it in place; none adds or removes elements.
type Dungeon struct {
	Name    string // Source name; not serialized
	Rooms   []*Room
	Doors   []*Door
	Columns []*Column

	extra fields
}

// Validate checks the structural preconditions every stage relies on.
func (d *Dungeon) Validate() error {
	seen := make(map[Point]bool, len(d.Rooms))
	for _, r := range d.Rooms {
		if r.W < 1 || r.H < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidSize, r)
		}
		if seen[r.Origin()] {
			return fmt.Errorf("%w: (%d,%d)", ErrDuplicateOrigin, r.X, r.Y)
		}
		seen[r.Origin()] = true
	}
	return nil
}

// RoomAt returns the room whose origin is (x, y), or nil.
func (d *Dungeon) RoomAt(x, y int) *Room {
	for _, r := range d.Rooms {
		if r.X == x && r.Y == y {
			return r
		}
	}
	return nil
}

// Containing returns the first room whose footprint contains (x, y), or nil.
func (d *Dungeon) Containing(x, y int) *Room {
	for _, r := range d.Rooms {
		if r.Contains(x, y) {
			return r
		}
	}
	return nil
}

// Ramps returns the rooms currently marked as ramps, in origin order.
func (d *Dungeon) Ramps() []*Room {
	var ramps []*Room
	for _, r := range d.Rooms {
		if r.IsRamp() {
			ramps = append(ramps, r)
		}
	}
	SortRooms(ramps)
	return ramps
}

// Stories returns the distinct assigned story levels, highest first.
func (d *Dungeon) Stories() []int {
	seen := make(map[int]bool)
	var levels []int
	for _, r := range d.Rooms {
		if level, ok := r.Story.Level(); ok && !seen[level] {
			seen[level] = true
			levels = append(levels, level)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	return levels
}

// ClearDerived resets kinds, stories and ramp directions. Wall structure is
// left alone; the walls stage overwrites it when enabled.
func (d *Dungeon) ClearDerived() {
	for _, r := range d.Rooms {
		r.Kind = Normal
		r.Story = Unassigned
		r.RampDirection = NoDirection
	}
	for _, door := range d.Doors {
		door.Story = Unassigned
	}
	for _, c := range d.Columns {
		c.Story = Unassigned
	}
}

// ClearStories resets story values and ramp directions, leaving kinds alone.
func (d *Dungeon) ClearStories() {
	for _, r := range d.Rooms {
		r.Story = Unassigned
		r.RampDirection = NoDirection
	}
	for _, door := range d.Doors {
		door.Story = Unassigned
	}
	for _, c := range d.Columns {
		c.Story = Unassigned
	}
}

// SortRooms sorts rooms by X then Y for deterministic iteration.
func SortRooms(rooms []*Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].X != rooms[j].X {
			return rooms[i].X < rooms[j].X
		}
		return rooms[i].Y < rooms[j].Y
	})
}
