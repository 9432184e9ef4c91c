// Package walls derives the wall segments, ceiling height and vaulting of
// every room, ready for the geometry builder.
package walls

import (
	"sort"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// Float64er is the random source for ceiling heights. *rand.Rand satisfies it.
type Float64er interface {
	Float64() float64
}

var (
	horizontal = layout.Vector{X: 1, Y: 0}
	vertical   = layout.Vector{X: 0, Y: 1}
)

// weight is one entry of a ceiling height distribution.
type weight struct {
	level int
	p     float64
}

var (
	smallCeilings  = []weight{{0, 0.8}, {1, 0.2}}
	mediumCeilings = []weight{{0, 0.5}, {1, 0.3}, {2, 0.2}}
	largeCeilings  = []weight{{0, 0.4}, {1, 0.3}, {2, 0.2}, {3, 0.1}}
)

// Summary counts what Generate produced.
type Summary struct {
	Walls   int // Segments kept after shared walls were removed
	Removed int // Segments dropped because two rooms shared them
}

type wallKey struct {
	x, y  int
	dir   layout.Vector
	level int
}

// Generate replaces the Structure of every room. Each room gets a wall
// segment per unit of its perimeter on every ceiling level; segments two
// rooms share are removed from both. Rotunda rooms record the sides on which
// they shared a wall as exits.
func Generate(rooms []*layout.Room, rng Float64er) Summary {
	counts := make(map[wallKey]int)
	for _, r := range rooms {
		s := &layout.Structure{
			Vault:   vault(r),
			Ceiling: Ceiling(r, rng),
		}
		s.Walls = perimeter(r, s.Ceiling)
		for _, w := range s.Walls {
			counts[keyOf(w)]++
		}
		r.Structure = s
	}

	var sum Summary
	for _, r := range rooms {
		s := r.Structure
		if r.Rotunda {
			s.Exits = exits(r, counts)
		}

		kept := s.Walls[:0]
		for _, w := range s.Walls {
			if counts[keyOf(w)] == 1 {
				kept = append(kept, w)
			} else {
				sum.Removed++
			}
		}
		s.Walls = kept
		sum.Walls += len(kept)
	}
	return sum
}

func keyOf(w layout.Wall) wallKey {
	return wallKey{x: w.X, y: w.Y, dir: w.Dir, level: w.Level}
}

// vault is 0 for single-tile rooms, which get a flat ceiling.
func vault(r *layout.Room) int {
	if r.W == 1 && r.H == 1 {
		return 0
	}
	return 1
}

// Ceiling draws the number of extra wall levels above the floor. Corridors
// are always a single level; bigger rooms are more likely to be tall.
func Ceiling(r *layout.Room, rng Float64er) int {
	if r.W == 1 || r.H == 1 {
		return 0
	}

	area := r.W * r.H
	dist := largeCeilings
	switch {
	case area < 4:
		dist = smallCeilings
	case area < 9:
		dist = mediumCeilings
	}

	roll := rng.Float64()
	acc := 0.0
	for _, w := range dist {
		acc += w.p
		if roll < acc {
			return w.level
		}
	}
	return dist[len(dist)-1].level
}

func perimeter(r *layout.Room, ceiling int) []layout.Wall {
	walls := make([]layout.Wall, 0, (ceiling+1)*2*(r.W+r.H))
	for level := 0; level <= ceiling; level++ {
		for i := 0; i < r.W; i++ {
			walls = append(walls,
				layout.Wall{X: r.X + i, Y: r.Y, Dir: horizontal, Level: level},
				layout.Wall{X: r.X + i, Y: r.Y + r.H, Dir: horizontal, Level: level},
			)
		}
		for i := 0; i < r.H; i++ {
			walls = append(walls,
				layout.Wall{X: r.X, Y: r.Y + i, Dir: vertical, Level: level},
				layout.Wall{X: r.X + r.W, Y: r.Y + i, Dir: vertical, Level: level},
			)
		}
	}
	return walls
}

// side returns which edge of r the wall lies on.
func side(r *layout.Room, w layout.Wall) layout.Direction {
	if w.Dir == horizontal {
		if w.Y == r.Y {
			return layout.South
		}
		return layout.North
	}
	if w.X == r.X {
		return layout.West
	}
	return layout.East
}

func exits(r *layout.Room, counts map[wallKey]int) []layout.Direction {
	seen := make(map[layout.Direction]bool)
	for _, w := range r.Structure.Walls {
		if counts[keyOf(w)] > 1 {
			seen[side(r, w)] = true
		}
	}

	result := make([]layout.Direction, 0, len(seen))
	for dir := range seen {
		result = append(result, dir)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
