// Package pipeline runs the annotation stages over a dungeon in their fixed
// order: ramp detection, cluster resolution, story assignment, ramp
// directions, door and column propagation and, optionally, walls.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/logger"
	"github.com/lawnchairsociety/dungeonstory/internal/story"
	"github.com/lawnchairsociety/dungeonstory/internal/topology"
	"github.com/lawnchairsociety/dungeonstory/internal/walls"
)

// Report summarises one run.
type Report struct {
	Name          string `json:"name"`
	Rooms         int    `json:"rooms"`
	Candidates    int    `json:"candidates"`
	Bridges       int    `json:"bridges"`
	Ramps         int    `json:"ramps"`
	Clusters      int    `json:"clusters"`
	Stories       []int  `json:"stories"`
	Deepest       int    `json:"deepest"`
	Unassigned    int    `json:"unassigned"`
	OrphanDoors   int    `json:"orphan_doors"`
	OrphanColumns int    `json:"orphan_columns"`
	Walls         int    `json:"walls,omitempty"`
}

// Pipeline processes dungeons one at a time. It is not safe for concurrent use.
type Pipeline struct {
	opts  Options
	types topology.DoorTypes
	story story.Options
}

// New returns a Pipeline. Missing random sources fall back to the defaults.
func New(opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Rand == nil {
		opts.Rand = def.Rand
	}
	if opts.WallRand == nil {
		opts.WallRand = def.WallRand
	}
	return &Pipeline{
		opts:  opts,
		types: topology.NewDoorTypes(opts.DoorTypes...),
		story: story.Options{Unreachable: opts.Unreachable, FallbackStory: opts.FallbackStory},
	}
}

// Key identifies raw processed under this pipeline's settings. Archived
// results are stored under it.
func (p *Pipeline) Key(raw []byte) string {
	return layout.KeyedFingerprint(raw, p.opts.Signature())
}

// Run annotates d in place. Derived fields from an earlier run are cleared
// first. On error no story in d is authoritative.
func (p *Pipeline) Run(d *layout.Dungeon) (*Report, error) {
	log := logger.With("layout", d.Name)

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", d.Name, err)
	}
	d.ClearDerived()
	if d.RoomAt(0, 0) == nil {
		return nil, fmt.Errorf("pipeline: %s: %w", d.Name, story.ErrNoEntrance)
	}

	g := topology.NewGraph(d.Rooms)
	if !g.Connected() {
		log.Warn("Layout is split into detached parts", "parts", len(g.Components()))
	}
	det := topology.DetectRamps(g, d.Doors, p.types)
	clusters := topology.ResolveClusters(g, p.opts.Rand)
	for _, c := range clusters {
		log.Debug("Ramp cluster collapsed", "members", len(c.Members), "kept", c.Kept.String())
	}

	result, err := story.Assign(g, p.story)
	if err != nil {
		d.ClearStories()
		return nil, fmt.Errorf("pipeline: %s: %w", d.Name, err)
	}
	if len(result.Unreachable) > 0 && p.story.Unreachable == story.Leave {
		log.Warn("Rooms unreachable from entrance left without a story", "count", len(result.Unreachable))
	}

	story.AssignRampDirections(g)

	prop := story.Propagate(d)
	for _, door := range prop.OrphanDoors {
		log.Warn("Door lies in no room, story defaulted", "x", door.X, "y", door.Y)
	}
	for _, c := range prop.OrphanColumns {
		log.Warn("Column lies in no room, story defaulted", "x", c.X, "y", c.Y)
	}

	report := &Report{
		Name:          d.Name,
		Rooms:         len(d.Rooms),
		Candidates:    len(det.Candidates),
		Bridges:       len(det.Ramps),
		Ramps:         len(d.Ramps()),
		Clusters:      len(clusters),
		Stories:       d.Stories(),
		Deepest:       result.Deepest(),
		OrphanDoors:   len(prop.OrphanDoors),
		OrphanColumns: len(prop.OrphanColumns),
	}
	for _, r := range d.Rooms {
		if !r.Story.Assigned() {
			report.Unassigned++
		}
	}

	if p.opts.Walls {
		summary := walls.Generate(d.Rooms, p.opts.WallRand)
		report.Walls = summary.Walls
		log.Debug("Walls generated", "walls", summary.Walls, "shared", summary.Removed)
	}

	log.Info("Stories assigned",
		"rooms", report.Rooms,
		"ramps", report.Ramps,
		"stories", len(report.Stories),
		"deepest", report.Deepest,
		"unassigned", report.Unassigned)
	return report, nil
}

// Verify re-checks a processed dungeon: every ramp is a bridge, no two ramps
// touch, the entrance is on story 0 and stories are contiguous.
func (p *Pipeline) Verify(d *layout.Dungeon) error {
	g := topology.NewGraph(d.Rooms)
	return errors.Join(
		topology.VerifyBridges(g),
		topology.VerifyClusters(g),
		story.Verify(g, p.story),
	)
}
