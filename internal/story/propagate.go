package story

import "github.com/lawnchairsociety/dungeonstory/internal/layout"

// Propagation counts the doors and columns that fell inside no room.
type Propagation struct {
	OrphanDoors   []*layout.Door
	OrphanColumns []*layout.Column
}

// Propagate copies each room's story onto the doors and columns inside it.
// Anything outside every room, or inside an unassigned room, gets story 0.
// Running it again on the same dungeon gives the same result.
func Propagate(d *layout.Dungeon) Propagation {
	var p Propagation

	for _, door := range d.Doors {
		room := d.Containing(door.X, door.Y)
		if room == nil {
			p.OrphanDoors = append(p.OrphanDoors, door)
			door.Story = layout.StoryOf(EntranceStory)
			continue
		}
		door.Story = layout.StoryOf(room.Story.Or(EntranceStory))
	}

	for _, c := range d.Columns {
		room := d.Containing(c.X, c.Y)
		if room == nil {
			p.OrphanColumns = append(p.OrphanColumns, c)
			c.Story = layout.StoryOf(EntranceStory)
			continue
		}
		c.Story = layout.StoryOf(room.Story.Or(EntranceStory))
	}

	return p
}
