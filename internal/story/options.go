package story

import (
	"fmt"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/topology"
)

// Policy decides what happens to rooms no fill reached.
type Policy int

const (
	// Leave keeps unreachable rooms unassigned; callers report them.
	Leave Policy = iota
	// Fail aborts the assignment and clears every story.
	Fail
	// Fallback parks unreachable rooms on a fixed story.
	Fallback
)

// DefaultFallbackStory is the story Fallback uses unless configured otherwise.
const DefaultFallbackStory = -9

// String returns the string representation of a Policy
func (p Policy) String() string {
	switch p {
	case Leave:
		return "leave"
	case Fail:
		return "error"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "leave":
		return Leave, nil
	case "error", "fail":
		return Fail, nil
	case "fallback":
		return Fallback, nil
	}
	return Leave, fmt.Errorf("story: unknown unreachable policy %q", s)
}

// Options tune story assignment.
type Options struct {
	Unreachable   Policy
	FallbackStory int
}

// DefaultOptions leaves unreachable rooms unassigned.
func DefaultOptions() Options {
	return Options{Unreachable: Leave, FallbackStory: DefaultFallbackStory}
}

func (o Options) settle(g *topology.Graph, result *Result) error {
	if len(result.Unreachable) == 0 {
		return nil
	}

	switch o.Unreachable {
	case Fail:
		clearStories(g)
		err := fmt.Errorf("%w: %d room(s), first %s", ErrUnreachable, len(result.Unreachable), describe(result.Unreachable))
		result.Levels = nil
		return err
	case Fallback:
		for _, r := range result.Unreachable {
			r.Story = layout.StoryOf(o.FallbackStory)
		}
	}
	return nil
}
