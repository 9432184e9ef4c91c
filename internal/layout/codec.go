package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fields keeps keys this package does not interpret, so a layout record
// survives a decode/encode round trip with its upstream data intact.
type fields map[string]json.RawMessage

func (f fields) take(key string, dst any) (bool, error) {
	raw, ok := f[key]
	if !ok {
		return false, nil
	}
	delete(f, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

func (f fields) require(key string, dst any) error {
	found, err := f.take(key, dst)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("missing field %q", key)
	}
	return nil
}

// Unmarshal parses a layout record ({"rects": [...], "doors": [...], "columns": [...]}).
func Unmarshal(data []byte) (*Dungeon, error) {
	var top fields
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("layout: parse record: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("layout: parse record: not an object")
	}

	var rects, doors, columns []fields
	if err := top.require("rects", &rects); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if _, err := top.take("doors", &doors); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if _, err := top.take("columns", &columns); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	d := &Dungeon{extra: top}
	for i, f := range rects {
		room, err := decodeRoom(f)
		if err != nil {
			return nil, fmt.Errorf("layout: rect %d: %w", i, err)
		}
		d.Rooms = append(d.Rooms, room)
	}
	for i, f := range doors {
		door, err := decodeDoor(f)
		if err != nil {
			return nil, fmt.Errorf("layout: door %d: %w", i, err)
		}
		d.Doors = append(d.Doors, door)
	}
	for i, f := range columns {
		col, err := decodeColumn(f)
		if err != nil {
			return nil, fmt.Errorf("layout: column %d: %w", i, err)
		}
		d.Columns = append(d.Columns, col)
	}
	return d, nil
}

func decodeRoom(f fields) (*Room, error) {
	if f == nil {
		f = fields{}
	}
	r := &Room{}
	for _, dim := range []struct {
		key string
		dst *int
	}{{"x", &r.X}, {"y", &r.Y}, {"w", &r.W}, {"h", &r.H}} {
		if err := f.require(dim.key, dim.dst); err != nil {
			return nil, err
		}
	}

	var rotunda *bool
	if _, err := f.take("rotunda", &rotunda); err != nil {
		return nil, err
	}
	r.Rotunda = rotunda != nil && *rotunda

	var kind *string
	if _, err := f.take("type", &kind); err != nil {
		return nil, err
	}
	if kind != nil && *kind == "ramp" {
		r.Kind = Ramp
	}
	if _, err := f.take("story", &r.Story); err != nil {
		return nil, err
	}

	var rampDir string
	if _, err := f.take("ramp_dir", &rampDir); err != nil {
		return nil, err
	}
	dir, err := ParseDirection(rampDir)
	if err != nil {
		return nil, err
	}
	r.RampDirection = dir

	if _, ok := f["walls"]; ok {
		s := &Structure{}
		if err := f.require("walls", &s.Walls); err != nil {
			return nil, err
		}
		if _, err := f.take("vault", &s.Vault); err != nil {
			return nil, err
		}
		if _, err := f.take("ceiling", &s.Ceiling); err != nil {
			return nil, err
		}
		var exits []string
		if _, err := f.take("exits", &exits); err != nil {
			return nil, err
		}
		for _, e := range exits {
			d, err := ParseDirection(e)
			if err != nil {
				return nil, err
			}
			s.Exits = append(s.Exits, d)
		}
		r.Structure = s
	}

	r.extra = f
	return r, nil
}

func decodeDoor(f fields) (*Door, error) {
	if f == nil {
		f = fields{}
	}
	door := &Door{}
	if err := f.require("x", &door.X); err != nil {
		return nil, err
	}
	if err := f.require("y", &door.Y); err != nil {
		return nil, err
	}
	if _, err := f.take("type", &door.Type); err != nil {
		return nil, err
	}
	if _, err := f.take("dir", &door.Dir); err != nil {
		return nil, err
	}
	if _, err := f.take("story", &door.Story); err != nil {
		return nil, err
	}
	door.extra = f
	return door, nil
}

func decodeColumn(f fields) (*Column, error) {
	if f == nil {
		f = fields{}
	}
	c := &Column{}
	if err := f.require("x", &c.X); err != nil {
		return nil, err
	}
	if err := f.require("y", &c.Y); err != nil {
		return nil, err
	}
	if _, err := f.take("story", &c.Story); err != nil {
		return nil, err
	}
	c.extra = f
	return c, nil
}

// object writes a JSON object with keys in insertion order.
type object struct {
	buf bytes.Buffer
	err error
}

func (o *object) field(key string, v any) {
	if o.err != nil {
		return
	}
	if o.buf.Len() == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	o.buf.Write(k)
	o.buf.WriteByte(':')

	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	case []byte:
		data = val
	default:
		data, o.err = json.Marshal(v)
	}
	o.buf.Write(data)
}

func (o *object) extras(f fields) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.field(k, f[k])
	}
}

func (o *object) bytes() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.buf.Len() == 0 {
		return []byte("{}"), nil
	}
	o.buf.WriteByte('}')
	return o.buf.Bytes(), nil
}

func encodeRoom(r *Room) ([]byte, error) {
	o := &object{}
	o.field("x", r.X)
	o.field("y", r.Y)
	o.field("w", r.W)
	o.field("h", r.H)
	if r.Rotunda {
		o.field("rotunda", true)
	}
	if r.IsRamp() {
		o.field("type", "ramp")
	} else {
		o.field("type", nil)
	}
	o.field("story", r.Story)
	if r.IsRamp() && r.RampDirection != NoDirection {
		o.field("ramp_dir", r.RampDirection.String())
	}
	if s := r.Structure; s != nil {
		o.field("vault", s.Vault)
		o.field("ceiling", s.Ceiling)
		walls := s.Walls
		if walls == nil {
			walls = []Wall{}
		}
		o.field("walls", walls)
		if r.Rotunda {
			exits := make([]string, 0, len(s.Exits))
			for _, e := range s.Exits {
				exits = append(exits, e.String())
			}
			o.field("exits", exits)
		}
	}
	o.extras(r.extra)
	return o.bytes()
}

func encodeDoor(door *Door) ([]byte, error) {
	o := &object{}
	o.field("x", door.X)
	o.field("y", door.Y)
	o.field("type", door.Type)
	o.field("dir", door.Dir)
	if door.Story.Assigned() {
		o.field("story", door.Story)
	}
	o.extras(door.extra)
	return o.bytes()
}

func encodeColumn(c *Column) ([]byte, error) {
	o := &object{}
	o.field("x", c.X)
	o.field("y", c.Y)
	if c.Story.Assigned() {
		o.field("story", c.Story)
	}
	o.extras(c.extra)
	return o.bytes()
}

func encodeList[T any](items []T, enc func(T) ([]byte, error)) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := enc(item)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Marshal renders the dungeon as an indented layout record.
func Marshal(d *Dungeon) ([]byte, error) {
	rects, err := encodeList(d.Rooms, encodeRoom)
	if err != nil {
		return nil, fmt.Errorf("layout: encode rects: %w", err)
	}
	doors, err := encodeList(d.Doors, encodeDoor)
	if err != nil {
		return nil, fmt.Errorf("layout: encode doors: %w", err)
	}
	columns, err := encodeList(d.Columns, encodeColumn)
	if err != nil {
		return nil, fmt.Errorf("layout: encode columns: %w", err)
	}

	o := &object{}
	o.field("rects", rects)
	o.field("doors", doors)
	o.field("columns", columns)
	o.extras(d.extra)
	compact, err := o.bytes()
	if err != nil {
		return nil, fmt.Errorf("layout: encode record: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, fmt.Errorf("layout: indent record: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// LoadFile reads a layout record and names the dungeon after the file.
func LoadFile(path string) (*Dungeon, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	d, err := Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return d, data, nil
}

// SaveFile writes the dungeon to path, creating parent directories.
func SaveFile(path string, d *Dungeon) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	return nil
}
