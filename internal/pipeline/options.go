package pipeline

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/lawnchairsociety/dungeonstory/internal/config"
	"github.com/lawnchairsociety/dungeonstory/internal/story"
	"github.com/lawnchairsociety/dungeonstory/internal/topology"
	"github.com/lawnchairsociety/dungeonstory/internal/walls"
)

// Options configures one Pipeline. A Pipeline owns its random sources, so
// pipelines running side by side must each get their own Options.
type Options struct {
	DoorTypes     []int           // Door types that keep a room from being a ramp; nil means the defaults
	Rand          topology.Intn   // Tie-break for even ramp clusters
	Unreachable   story.Policy    // What to do with rooms the entrance never reaches
	FallbackStory int             // Story for unreachable rooms under story.Fallback
	Walls         bool            // Generate walls and ceilings after stories
	WallRand      walls.Float64er // Ceiling height draws
}

// DefaultOptions uses the standard door types, time-seeded randomness and
// leaves unreachable rooms unassigned.
func DefaultOptions() Options {
	seed := time.Now().UnixNano()
	return Options{
		DoorTypes:     topology.DefaultDoorTypes,
		Rand:          rand.New(rand.NewSource(seed)),
		Unreachable:   story.Leave,
		FallbackStory: story.DefaultFallbackStory,
		WallRand:      rand.New(rand.NewSource(seed + 1)),
	}
}

// OptionsFromConfig builds fresh Options from the loaded configuration.
// A zero seed means seed from the clock.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := story.ParsePolicy(cfg.Pipeline.Unreachable)
	if err != nil {
		return Options{}, err
	}

	return Options{
		DoorTypes:     cfg.Pipeline.DoorTypes,
		Rand:          rand.New(rand.NewSource(seedOrClock(cfg.Pipeline.Seed))),
		Unreachable:   policy,
		FallbackStory: cfg.Pipeline.FallbackStory,
		Walls:         cfg.Walls.Enabled,
		WallRand:      rand.New(rand.NewSource(seedOrClock(cfg.Walls.Seed))),
	}, nil
}

func seedOrClock(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// Signature names the settings that change a run's output. Random sources
// are left out: a seeded tie-break only picks between equally valid ramps.
func (o Options) Signature() string {
	types := o.DoorTypes
	if len(types) == 0 {
		types = topology.DefaultDoorTypes
	}
	types = slices.Clone(types)
	slices.Sort(types)
	types = slices.Compact(types)

	sig := fmt.Sprintf("doors=%v unreachable=%s walls=%t", types, o.Unreachable, o.Walls)
	if o.Unreachable == story.Fallback {
		sig += fmt.Sprintf(" fallback=%d", o.FallbackStory)
	}
	return sig
}
