package story

import (
	"testing"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/layout/layouttest"
)

func TestPropagate(t *testing.T) {
	d := threeStories()
	if _, err := Assign(prepare(d, 1), DefaultOptions()); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	d.Rooms = append(d.Rooms, layout.NewRoom(30, 30, 1, 1)) // Never assigned

	upper := layouttest.Door(d, 1, 1, 1)
	lower := layouttest.Door(d, 7, 1, 1)
	orphan := layouttest.Door(d, 50, 50, 2)
	island := layouttest.Door(d, 30, 30, 1)
	d.Columns = []*layout.Column{{X: 3, Y: 1}, {X: -5, Y: 0}}

	p := Propagate(d)

	tests := []struct {
		name  string
		story layout.Story
		want  int
	}{
		{"door in entrance hall", upper.Story, 0},
		{"door in deepest hall", lower.Story, -2},
		{"door outside every room", orphan.Story, 0},
		{"door in unassigned room", island.Story, 0},
		{"column in middle hall", d.Columns[0].Story, -1},
		{"column outside every room", d.Columns[1].Story, 0},
	}
	for _, tt := range tests {
		if !tt.story.Is(tt.want) {
			t.Errorf("%s: story = %v, want %d", tt.name, tt.story, tt.want)
		}
	}

	if len(p.OrphanDoors) != 1 || p.OrphanDoors[0] != orphan {
		t.Errorf("OrphanDoors = %v, want the door at (50,50)", p.OrphanDoors)
	}
	if len(p.OrphanColumns) != 1 {
		t.Errorf("OrphanColumns = %v, want one", p.OrphanColumns)
	}
}

func TestPropagateIsIdempotent(t *testing.T) {
	d := layouttest.Grow(3, 40)
	if _, err := Assign(prepare(d, 3), DefaultOptions()); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	for _, r := range d.Rooms {
		layouttest.Door(d, r.X, r.Y, 1)
		d.Columns = append(d.Columns, &layout.Column{X: r.X + r.W - 1, Y: r.Y + r.H - 1})
	}

	Propagate(d)
	first, err := layout.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	Propagate(d)
	second, err := layout.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("second propagation changed door or column stories")
	}
}
