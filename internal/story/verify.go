package story

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/dungeonstory/internal/topology"
)

var (
	ErrEntranceStory = errors.New("story: entrance is not on story 0")
	ErrDetachedRamp  = errors.New("story: ramp shares no story with its neighbors")
	ErrStoryGap      = errors.New("story: story levels are not contiguous")
)

// Verify checks a finished assignment: the entrance is on story 0, every
// labeled ramp shares its story with a neighbor, and the levels present form
// an unbroken run 0, -1, -2, ... The fallback story, when configured, is exempt.
func Verify(g *topology.Graph, opts Options) error {
	levels := make(map[int]bool)
	for _, r := range g.Rooms() {
		level, ok := r.Story.Level()
		if !ok {
			continue
		}
		if r.X == 0 && r.Y == 0 && level != EntranceStory {
			return fmt.Errorf("%w: %s is on %d", ErrEntranceStory, r, level)
		}
		if opts.Unreachable == Fallback && level == opts.FallbackStory {
			continue
		}
		if level > EntranceStory {
			return fmt.Errorf("%w: %s is above the entrance on %d", ErrStoryGap, r, level)
		}
		levels[level] = true

		if !r.IsRamp() {
			continue
		}
		shared := false
		for _, n := range g.Neighbors(r) {
			if n.Room.Story.Is(level) {
				shared = true
				break
			}
		}
		if !shared {
			return fmt.Errorf("%w: %s on %d", ErrDetachedRamp, r, level)
		}
	}

	for level := EntranceStory; len(levels) > 0; level-- {
		if !levels[level] {
			return fmt.Errorf("%w: missing %d", ErrStoryGap, level)
		}
		delete(levels, level)
	}
	return nil
}
