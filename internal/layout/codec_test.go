package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{
	"seed": 42,
	"rects": [
		{"x": 0, "y": 0, "w": 2, "h": 2, "type": null, "label": "hall"},
		{"x": 2, "y": 0, "w": 1, "h": 1, "rotunda": false},
		{"x": 3, "y": 0, "w": 2, "h": 2, "story": -1}
	],
	"doors": [
		{"x": 1, "y": 1, "type": 1, "dir": {"x": 1, "y": 0}, "locked": true}
	],
	"columns": [
		{"x": 4, "y": 1}
	]
}`

func TestUnmarshal(t *testing.T) {
	d, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(d.Rooms) != 3 || len(d.Doors) != 1 || len(d.Columns) != 1 {
		t.Fatalf("got %d rooms, %d doors, %d columns", len(d.Rooms), len(d.Doors), len(d.Columns))
	}
	if r := d.Rooms[0]; r.W != 2 || r.H != 2 || r.Kind != Normal || r.Story.Assigned() {
		t.Errorf("first room = %+v", r)
	}
	if !d.Rooms[2].Story.Is(-1) {
		t.Errorf("third room story = %v, want -1", d.Rooms[2].Story)
	}
	door := d.Doors[0]
	if door.Type != 1 || door.Dir != (Vector{X: 1, Y: 0}) {
		t.Errorf("door = %+v", door)
	}
}

func TestMarshalPreservesUnknownFields(t *testing.T) {
	d, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out struct {
		Seed  int              `json:"seed"`
		Rects []map[string]any `json:"rects"`
		Doors []map[string]any `json:"doors"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out.Seed != 42 {
		t.Errorf("seed = %d, want 42", out.Seed)
	}
	if out.Rects[0]["label"] != "hall" {
		t.Errorf("rect label lost: %v", out.Rects[0])
	}
	if out.Doors[0]["locked"] != true {
		t.Errorf("door field lost: %v", out.Doors[0])
	}
	if _, ok := out.Doors[0]["story"]; ok {
		t.Error("unassigned door story should be omitted")
	}
	if v, ok := out.Rects[0]["story"]; !ok || v != nil {
		t.Errorf("unassigned room story = %v, want null", v)
	}

	again, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	second, err := Marshal(again)
	if err != nil {
		t.Fatalf("re-encode failed: %v", err)
	}
	if !bytes.Equal(data, second) {
		t.Errorf("encoding is not stable:\n%s\n---\n%s", data, second)
	}
}

func TestMarshalDerivedFields(t *testing.T) {
	d, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	ramp := d.Rooms[1]
	ramp.Kind = Ramp
	ramp.Story = StoryOf(0)
	ramp.RampDirection = East
	d.Doors[0].Story = StoryOf(0)

	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out struct {
		Rects []map[string]any `json:"rects"`
		Doors []map[string]any `json:"doors"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	r := out.Rects[1]
	if r["type"] != "ramp" || r["story"] != float64(0) || r["ramp_dir"] != "east" {
		t.Errorf("ramp encoded as %v", r)
	}
	if out.Rects[0]["type"] != nil {
		t.Errorf("normal room type = %v, want null", out.Rects[0]["type"])
	}
	if _, ok := out.Rects[0]["ramp_dir"]; ok {
		t.Error("normal room should not carry ramp_dir")
	}
	if out.Doors[0]["story"] != float64(0) {
		t.Errorf("door story = %v, want 0", out.Doors[0]["story"])
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if got := back.Rooms[1]; !got.IsRamp() || got.RampDirection != East || !got.Story.Is(0) {
		t.Errorf("decoded ramp = %+v", got)
	}
}

func TestMarshalStructure(t *testing.T) {
	d := &Dungeon{Rooms: []*Room{NewRoom(0, 0, 3, 3)}}
	d.Rooms[0].Rotunda = true
	d.Rooms[0].Structure = &Structure{
		Vault:   2,
		Ceiling: 1,
		Walls:   []Wall{{X: 0, Y: 0, Dir: Vector{X: 1}, Level: 0}},
		Exits:   []Direction{North, West},
	}

	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	s := back.Rooms[0].Structure
	if s == nil {
		t.Fatal("structure was not decoded")
	}
	if s.Vault != 2 || s.Ceiling != 1 || len(s.Walls) != 1 {
		t.Errorf("structure = %+v", s)
	}
	if len(s.Exits) != 2 || s.Exits[0] != North || s.Exits[1] != West {
		t.Errorf("exits = %v, want [north west]", s.Exits)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{`, "parse record"},
		{"not an object", `null`, "not an object"},
		{"no rects", `{"doors": []}`, `missing field "rects"`},
		{"rect without width", `{"rects": [{"x": 0, "y": 0, "h": 1}]}`, `rect 0: missing field "w"`},
		{"rect without size", `{"rects": [{"x": 0}]}`, `rect 0: missing field "y"`},
		{"bad story", `{"rects": [{"x": 0, "y": 0, "w": 1, "h": 1, "story": "top"}]}`, "story"},
		{"bad ramp_dir", `{"rects": [{"x": 0, "y": 0, "w": 1, "h": 1, "ramp_dir": "up"}]}`, "unknown direction"},
		{"door without y", `{"rects": [], "doors": [{"x": 0}]}`, `door 0: missing field "y"`},
		{"column without x", `{"rects": [], "columns": [{"y": 0}]}`, `column 0: missing field "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestMarshalFormatting(t *testing.T) {
	d, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)
	if !strings.HasSuffix(out, "}\n") {
		t.Error("encoded record should end with a newline")
	}
	if !strings.Contains(out, "\n    \"rects\": [") {
		t.Errorf("expected four-space indentation, got:\n%s", out)
	}
}

func TestLoadSaveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "crypt.json")
	if err := os.WriteFile(src, []byte(sample), 0644); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}

	d, raw, err := LoadFile(src)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if d.Name != "crypt" {
		t.Errorf("Name = %q, want crypt", d.Name)
	}
	if string(raw) != sample {
		t.Error("LoadFile should return the raw bytes it read")
	}

	dst := filepath.Join(dir, "out", "nested", "crypt.json")
	if err := SaveFile(dst, d); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	back, _, err := LoadFile(dst)
	if err != nil {
		t.Fatalf("reloading saved file failed: %v", err)
	}
	if len(back.Rooms) != len(d.Rooms) {
		t.Errorf("reloaded %d rooms, want %d", len(back.Rooms), len(d.Rooms))
	}

	if _, _, err := LoadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestStoryJSON(t *testing.T) {
	var s Story
	if err := json.Unmarshal([]byte("-3"), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !s.Is(-3) {
		t.Errorf("story = %v, want -3", s)
	}
	if err := json.Unmarshal([]byte("null"), &s); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if s.Assigned() {
		t.Error("null should decode as unassigned")
	}

	data, _ := json.Marshal(StoryOf(0))
	if string(data) != "0" {
		t.Errorf("StoryOf(0) = %s, want 0", data)
	}
	data, _ = json.Marshal(Unassigned)
	if string(data) != "null" {
		t.Errorf("Unassigned = %s, want null", data)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(sample))
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(a))
	}
	if a != Fingerprint([]byte(sample)) {
		t.Error("fingerprint is not deterministic")
	}
	if a == Fingerprint([]byte(sample+" ")) {
		t.Error("different input produced the same fingerprint")
	}
}
