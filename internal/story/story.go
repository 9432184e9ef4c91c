// Package story partitions a dungeon into vertically stacked stories.
//
// The entrance room at (0,0) is story 0. A flood fill labels everything
// reachable from it without crossing a ramp; each ramp reached that way leads
// down to story -1, whose rooms are filled the same way, and so on until a
// story has no ramps left. Branches at the same depth share a story number.
package story

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/topology"
)

var (
	ErrNoEntrance  = errors.New("story: no entrance room at (0,0)")
	ErrUnreachable = errors.New("story: rooms unreachable from entrance")
)

// EntranceStory is the story of the entrance room.
const EntranceStory = 0

// Result describes one story assignment.
type Result struct {
	Levels      []int          // Assigned levels, 0 first, descending
	Unreachable []*layout.Room // Rooms no fill reached, in origin order
}

// Deepest returns the lowest assigned level.
func (r Result) Deepest() int {
	if len(r.Levels) == 0 {
		return EntranceStory
	}
	return r.Levels[len(r.Levels)-1]
}

// Assign labels every room reachable from the entrance with its story.
// Previous story values are cleared first. If the entrance is missing no
// room is touched and ErrNoEntrance is returned.
func Assign(g *topology.Graph, opts Options) (Result, error) {
	var entrance *layout.Room
	for _, r := range g.Rooms() {
		if r.X == 0 && r.Y == 0 {
			entrance = r
			break
		}
	}
	if entrance == nil {
		return Result{}, ErrNoEntrance
	}

	for _, r := range g.Rooms() {
		r.Story = layout.Unassigned
		r.RampDirection = layout.NoDirection
	}

	current := EntranceStory
	entrance.Story = layout.StoryOf(current)
	floodFill(g, []*layout.Room{entrance}, current)
	updateAdjacentRamps(g, current)
	result := Result{Levels: []int{current}}

	for {
		ramps := rampsAt(g, current)
		if len(ramps) == 0 {
			break
		}

		next := current - 1
		filled := false
		for _, ramp := range ramps {
			var seeds []*layout.Room
			for _, n := range g.Neighbors(ramp) {
				if !n.Room.Story.Assigned() {
					n.Room.Story = layout.StoryOf(next)
					seeds = append(seeds, n.Room)
				}
			}
			if len(seeds) > 0 {
				floodFill(g, seeds, next)
				filled = true
			}
		}
		if !filled {
			break
		}
		updateAdjacentRamps(g, next)

		current = next
		result.Levels = append(result.Levels, current)
	}

	for _, r := range g.Rooms() {
		if !r.Story.Assigned() {
			result.Unreachable = append(result.Unreachable, r)
		}
	}
	layout.SortRooms(result.Unreachable)

	if err := opts.settle(g, &result); err != nil {
		return result, err
	}
	return result, nil
}

// floodFill spreads level breadth-first from seeds, which must already carry
// it. Unlabeled normal rooms are labeled and expanded; unlabeled ramps are
// labeled but not expanded, so a fill never crosses into the next story.
func floodFill(g *topology.Graph, seeds []*layout.Room, level int) {
	queued := mapset.New[*layout.Room]()
	queue := make([]*layout.Room, 0, len(seeds))
	for _, s := range seeds {
		queued.Put(s)
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range g.Neighbors(current) {
			if n.Room.Story.Assigned() || queued.Has(n.Room) {
				continue
			}
			n.Room.Story = layout.StoryOf(level)
			if n.Room.IsRamp() {
				continue
			}
			queued.Put(n.Room)
			queue = append(queue, n.Room)
		}
	}
}

// updateAdjacentRamps labels any unlabeled ramp touching a room at level.
func updateAdjacentRamps(g *topology.Graph, level int) {
	for _, r := range g.Rooms() {
		if !r.Story.Is(level) {
			continue
		}
		for _, n := range g.Neighbors(r) {
			if n.Room.IsRamp() && !n.Room.Story.Assigned() {
				n.Room.Story = layout.StoryOf(level)
			}
		}
	}
}

// rampsAt returns the ramps at level in origin order.
func rampsAt(g *topology.Graph, level int) []*layout.Room {
	var ramps []*layout.Room
	for _, r := range g.Rooms() {
		if r.IsRamp() && r.Story.Is(level) {
			ramps = append(ramps, r)
		}
	}
	layout.SortRooms(ramps)
	return ramps
}

func clearStories(g *topology.Graph) {
	for _, r := range g.Rooms() {
		r.Story = layout.Unassigned
	}
}

func describe(rooms []*layout.Room) string {
	if len(rooms) == 0 {
		return ""
	}
	s := rooms[0].String()
	if len(rooms) > 1 {
		s += fmt.Sprintf(" and %d more", len(rooms)-1)
	}
	return s
}
