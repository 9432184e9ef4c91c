package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/layout/layouttest"
	"github.com/lawnchairsociety/dungeonstory/internal/story"
)

func seeded(seed int64) Options {
	return Options{
		Rand:          rand.New(rand.NewSource(seed)),
		WallRand:      rand.New(rand.NewSource(seed)),
		Unreachable:   story.Leave,
		FallbackStory: story.DefaultFallbackStory,
	}
}

// twoStories is a hall, a one-tile ramp and a lower hall.
func twoStories() *layout.Dungeon {
	return layouttest.New(
		[4]int{0, 0, 2, 2},
		[4]int{2, 0, 1, 1},
		[4]int{3, 0, 2, 2},
	)
}

func TestRunTwoStories(t *testing.T) {
	d := twoStories()
	upper := layouttest.Door(d, 1, 1, 1)
	lower := layouttest.Door(d, 4, 1, 2)
	d.Columns = append(d.Columns, &layout.Column{X: 10, Y: 10})

	report, err := New(seeded(1)).Run(d)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Rooms != 3 || report.Ramps != 1 || report.Bridges != 1 {
		t.Errorf("report = %+v, want 3 rooms, 1 bridge and 1 ramp", report)
	}
	if len(report.Stories) != 2 || report.Stories[0] != 0 || report.Stories[1] != -1 {
		t.Errorf("Stories = %v, want [0 -1]", report.Stories)
	}
	if report.Deepest != -1 {
		t.Errorf("Deepest = %d, want -1", report.Deepest)
	}
	if report.OrphanColumns != 1 || report.OrphanDoors != 0 {
		t.Errorf("orphans = %d doors, %d columns, want 0 and 1", report.OrphanDoors, report.OrphanColumns)
	}

	ramp := d.RoomAt(2, 0)
	if !ramp.IsRamp() {
		t.Fatal("connector is not a ramp")
	}
	if !ramp.Story.Is(0) {
		t.Errorf("ramp story = %v, want 0", ramp.Story)
	}
	if ramp.RampDirection != layout.East {
		t.Errorf("ramp direction = %v, want east", ramp.RampDirection)
	}
	if !d.RoomAt(3, 0).Story.Is(-1) {
		t.Errorf("lower hall story = %v, want -1", d.RoomAt(3, 0).Story)
	}
	if !upper.Story.Is(0) || !lower.Story.Is(-1) {
		t.Errorf("door stories = %v, %v, want 0 and -1", upper.Story, lower.Story)
	}
	if !d.Columns[0].Story.Is(0) {
		t.Errorf("orphan column story = %v, want 0", d.Columns[0].Story)
	}
}

func TestRunDisqualifyingDoor(t *testing.T) {
	d := layouttest.New(
		[4]int{0, 0, 2, 2},
		[4]int{2, 0, 1, 1},
		[4]int{3, 0, 1, 3},
	)
	layouttest.Door(d, 2, 0, 4)

	report, err := New(seeded(1)).Run(d)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Ramps != 0 {
		t.Errorf("Ramps = %d, want 0", report.Ramps)
	}
	if len(report.Stories) != 1 {
		t.Errorf("Stories = %v, want only the entrance story", report.Stories)
	}
}

func TestRunMissingEntrance(t *testing.T) {
	d := layouttest.New(
		[4]int{1, 0, 1, 1},
		[4]int{1, 1, 1, 1},
		[4]int{1, 2, 1, 1},
	)
	layouttest.Door(d, 1, 0, 1)

	if _, err := New(seeded(1)).Run(d); !errors.Is(err, story.ErrNoEntrance) {
		t.Fatalf("Run error = %v, want ErrNoEntrance", err)
	}
	for _, r := range d.Rooms {
		if r.Story.Assigned() {
			t.Errorf("%s has story %v after a fatal error", r, r.Story)
		}
	}
	if d.Doors[0].Story.Assigned() {
		t.Error("door received a story after a fatal error")
	}
	if d.Rooms[1].IsRamp() {
		t.Error("ramps were detected in a layout without an entrance")
	}
}

func TestKeyTracksSettings(t *testing.T) {
	raw := []byte(`{"rects": [{"x": 0, "y": 0, "w": 1, "h": 1}]}`)
	base := New(seeded(1)).Key(raw)

	if base == layout.Fingerprint(raw) {
		t.Error("Key should differ from the bare fingerprint")
	}
	if got := New(seeded(2)).Key(raw); got != base {
		t.Error("Key changed with the random seed")
	}

	defaults := seeded(1)
	defaults.DoorTypes = []int{7, 6, 4, 2, 1, 1}
	if got := New(defaults).Key(raw); got != base {
		t.Error("the default door types in another order should give the same key")
	}

	tests := []struct {
		name   string
		change func(*Options)
	}{
		{"door types", func(o *Options) { o.DoorTypes = []int{3} }},
		{"unreachable policy", func(o *Options) { o.Unreachable = story.Fallback }},
		{"walls", func(o *Options) { o.Walls = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := seeded(1)
			tt.change(&opts)
			if New(opts).Key(raw) == base {
				t.Errorf("changing %s kept the same key", tt.name)
			}
		})
	}

	fallback := seeded(1)
	fallback.Unreachable = story.Fallback
	deeper := fallback
	deeper.FallbackStory = -20
	if New(fallback).Key(raw) == New(deeper).Key(raw) {
		t.Error("fallback story should be part of the key")
	}
}

func TestRunDuplicateOrigin(t *testing.T) {
	d := layouttest.New([4]int{0, 0, 1, 1}, [4]int{0, 0, 2, 2})
	if _, err := New(seeded(1)).Run(d); !errors.Is(err, layout.ErrDuplicateOrigin) {
		t.Fatalf("Run error = %v, want ErrDuplicateOrigin", err)
	}
}

func TestRunUnreachablePolicies(t *testing.T) {
	build := func() *layout.Dungeon {
		d := twoStories()
		d.Rooms = append(d.Rooms, layout.NewRoom(20, 20, 2, 2))
		return d
	}

	t.Run("leave", func(t *testing.T) {
		d := build()
		report, err := New(seeded(1)).Run(d)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Unassigned != 1 {
			t.Errorf("Unassigned = %d, want 1", report.Unassigned)
		}
	})

	t.Run("error", func(t *testing.T) {
		d := build()
		opts := seeded(1)
		opts.Unreachable = story.Fail
		if _, err := New(opts).Run(d); !errors.Is(err, story.ErrUnreachable) {
			t.Fatalf("Run error = %v, want ErrUnreachable", err)
		}
		if len(d.Stories()) != 0 {
			t.Errorf("Stories = %v after failure, want none", d.Stories())
		}
	})

	t.Run("fallback", func(t *testing.T) {
		d := build()
		opts := seeded(1)
		opts.Unreachable = story.Fallback
		p := New(opts)
		report, err := p.Run(d)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Unassigned != 0 {
			t.Errorf("Unassigned = %d, want 0", report.Unassigned)
		}
		if !d.RoomAt(20, 20).Story.Is(story.DefaultFallbackStory) {
			t.Errorf("island story = %v, want %d", d.RoomAt(20, 20).Story, story.DefaultFallbackStory)
		}
		if err := p.Verify(d); err != nil {
			t.Errorf("Verify failed: %v", err)
		}
	})
}

func TestRunWalls(t *testing.T) {
	d := twoStories()
	opts := seeded(3)
	opts.Walls = true

	report, err := New(opts).Run(d)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Walls == 0 {
		t.Error("Walls = 0, want generated walls")
	}
	for _, r := range d.Rooms {
		if r.Structure == nil {
			t.Errorf("%s has no structure", r)
		}
	}
}

func TestRunIsRepeatable(t *testing.T) {
	d := layouttest.Grow(11, 40)

	if _, err := New(seeded(5)).Run(d); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	first, err := layout.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(seeded(5)).Run(d); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	second, err := layout.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("re-running with the same seed changed the output")
	}
}

func TestRunGrownLayoutsVerify(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		d := layouttest.Grow(seed, 30)
		p := New(seeded(seed))

		report, err := p.Run(d)
		if err != nil {
			t.Fatalf("seed %d: Run failed: %v", seed, err)
		}
		if report.Unassigned != 0 {
			t.Errorf("seed %d: Unassigned = %d in a connected layout", seed, report.Unassigned)
		}
		if err := p.Verify(d); err != nil {
			t.Errorf("seed %d: Verify failed: %v", seed, err)
		}
	}
}

func TestRunBatch(t *testing.T) {
	dungeons := []*layout.Dungeon{
		twoStories(),
		layouttest.New([4]int{5, 5, 1, 1}),
		layouttest.Grow(2, 20),
	}
	newPipeline := func() *Pipeline { return New(seeded(7)) }

	results, err := RunBatch(context.Background(), dungeons, 2, newPipeline)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if len(results) != len(dungeons) {
		t.Fatalf("got %d results, want %d", len(results), len(dungeons))
	}
	for i, res := range results {
		if res.Dungeon != dungeons[i] {
			t.Errorf("result %d is out of order", i)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, story.ErrNoEntrance) {
		t.Errorf("result 1 error = %v, want ErrNoEntrance", results[1].Err)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunBatch(ctx, []*layout.Dungeon{twoStories()}, 1, func() *Pipeline { return New(seeded(1)) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunBatch error = %v, want context.Canceled", err)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("result error = %v, want context.Canceled", results[0].Err)
	}
}
