// Package layouttest builds dungeons for tests: literal layouts from
// rectangle tuples, and seeded random layouts grown outward from the entrance.
package layouttest

import (
	"math/rand"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// New builds a dungeon from {x, y, w, h} tuples.
func New(rects ...[4]int) *layout.Dungeon {
	d := &layout.Dungeon{Name: "test"}
	for _, r := range rects {
		d.Rooms = append(d.Rooms, layout.NewRoom(r[0], r[1], r[2], r[3]))
	}
	return d
}

// Door appends a door to d and returns it.
func Door(d *layout.Dungeon, x, y, doorType int) *layout.Door {
	door := &layout.Door{X: x, Y: y, Type: doorType, Dir: layout.Vector{X: 0, Y: 1}}
	d.Doors = append(d.Doors, door)
	return door
}

// Grow generates a connected layout of up to n rooms. The first room sits at
// the origin; each later room is placed flush against a random side of a
// random existing room without overlapping anything already placed.
// The same seed always yields the same layout.
func Grow(seed int64, n int) *layout.Dungeon {
	rng := rand.New(rand.NewSource(seed))
	d := &layout.Dungeon{Name: "grown"}
	occupied := make(map[layout.Point]bool)

	place := func(r *layout.Room) bool {
		for x := r.X; x < r.X+r.W; x++ {
			for y := r.Y; y < r.Y+r.H; y++ {
				if occupied[layout.Point{X: x, Y: y}] {
					return false
				}
			}
		}
		for x := r.X; x < r.X+r.W; x++ {
			for y := r.Y; y < r.Y+r.H; y++ {
				occupied[layout.Point{X: x, Y: y}] = true
			}
		}
		d.Rooms = append(d.Rooms, r)
		return true
	}

	place(layout.NewRoom(0, 0, 1+rng.Intn(3), 1+rng.Intn(3)))

	maxAttempts := n * 50
	for attempt := 0; attempt < maxAttempts && len(d.Rooms) < n; attempt++ {
		from := d.Rooms[rng.Intn(len(d.Rooms))]
		w, h := randomSize(rng)
		dir := layout.AllDirections()[rng.Intn(4)]

		var x, y int
		switch dir {
		case layout.North:
			x = from.X - w + 1 + rng.Intn(from.W+w-1)
			y = from.Y + from.H
		case layout.South:
			x = from.X - w + 1 + rng.Intn(from.W+w-1)
			y = from.Y - h
		case layout.East:
			x = from.X + from.W
			y = from.Y - h + 1 + rng.Intn(from.H+h-1)
		case layout.West:
			x = from.X - w
			y = from.Y - h + 1 + rng.Intn(from.H+h-1)
		}
		place(layout.NewRoom(x, y, w, h))
	}

	return d
}

// randomSize favors one-tile corridors so ramps actually occur.
func randomSize(rng *rand.Rand) (int, int) {
	switch rng.Intn(4) {
	case 0:
		return 1, 1
	case 1:
		return 1, 1 + rng.Intn(3)
	case 2:
		return 1 + rng.Intn(3), 1
	default:
		return 2 + rng.Intn(3), 2 + rng.Intn(3)
	}
}
