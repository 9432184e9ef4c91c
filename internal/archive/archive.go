// Package archive records processed layouts in SQLite or PostgreSQL, keyed
// by the fingerprint of the input that produced them.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lawnchairsociety/dungeonstory/internal/config"
	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// ErrNotFound is returned when no layout has the requested fingerprint.
var ErrNotFound = errors.New("archive: layout not found")

// Archive wraps the database connection.
type Archive struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Record is one processed layout.
type Record struct {
	Fingerprint string // Archive key; see pipeline.Pipeline.Key
	Name        string
	Rooms       int
	Ramps       int
	Stories     int
	Deepest     int
	Unassigned  int
	Body        []byte // Annotated layout JSON; empty in List results
	ProcessedAt time.Time

	rooms []RoomRow
}

// RoomRow is the stored annotation of one room.
type RoomRow struct {
	X, Y, W, H int
	Kind       string
	Story      layout.Story
	RampDir    string
}

// NewRecord captures the annotated state of d under fingerprint.
func NewRecord(fingerprint string, d *layout.Dungeon) (Record, error) {
	body, err := layout.Marshal(d)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Fingerprint: fingerprint,
		Name:        d.Name,
		Rooms:       len(d.Rooms),
		Ramps:       len(d.Ramps()),
		Body:        body,
		ProcessedAt: time.Now().UTC(),
	}
	stories := d.Stories()
	rec.Stories = len(stories)
	if len(stories) > 0 {
		rec.Deepest = stories[len(stories)-1]
	}

	for _, r := range d.Rooms {
		if !r.Story.Assigned() {
			rec.Unassigned++
		}
		rec.rooms = append(rec.rooms, RoomRow{
			X: r.X, Y: r.Y, W: r.W, H: r.H,
			Kind:    r.Kind.String(),
			Story:   r.Story,
			RampDir: r.RampDirection.String(),
		})
	}
	return rec, nil
}

// Dungeon decodes the stored layout.
func (r Record) Dungeon() (*layout.Dungeon, error) {
	d, err := layout.Unmarshal(r.Body)
	if err != nil {
		return nil, err
	}
	d.Name = r.Name
	return d, nil
}

// Open connects to the database the config selects and creates the schema.
func Open(cfg config.ArchiveConfig) (*Archive, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize archive: %w\nSQL: %s", err, stmt)
		}
	}

	a := &Archive{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS layouts (
			fingerprint TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			rooms INTEGER NOT NULL,
			ramps INTEGER NOT NULL,
			stories INTEGER NOT NULL,
			deepest INTEGER NOT NULL,
			unassigned INTEGER NOT NULL,
			body TEXT NOT NULL,
			processed_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS layout_rooms (
			fingerprint TEXT NOT NULL REFERENCES layouts(fingerprint) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			w INTEGER NOT NULL,
			h INTEGER NOT NULL,
			kind TEXT NOT NULL,
			story INTEGER,
			ramp_dir TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (fingerprint, x, y)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_layouts_name ON layouts(name)`,
	}

	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Save stores rec, replacing any earlier record with the same fingerprint.
func (a *Archive) Save(ctx context.Context, rec Record) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	upsert := a.qb.Upsert("layouts", "fingerprint",
		"fingerprint", "name", "rooms", "ramps", "stories", "deepest", "unassigned", "body", "processed_at")
	if _, err := tx.ExecContext(ctx, upsert,
		rec.Fingerprint, rec.Name, rec.Rooms, rec.Ramps, rec.Stories, rec.Deepest, rec.Unassigned,
		string(rec.Body), rec.ProcessedAt); err != nil {
		return fmt.Errorf("archive: save %s: %w", rec.Name, err)
	}

	if _, err := tx.ExecContext(ctx, a.qb.Build(`DELETE FROM layout_rooms WHERE fingerprint = ?`), rec.Fingerprint); err != nil {
		return fmt.Errorf("archive: clear rooms of %s: %w", rec.Name, err)
	}

	insert := a.qb.Build(`INSERT INTO layout_rooms (fingerprint, x, y, w, h, kind, story, ramp_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, r := range rec.rooms {
		var story sql.NullInt64
		if level, ok := r.Story.Level(); ok {
			story = sql.NullInt64{Int64: int64(level), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			rec.Fingerprint, r.X, r.Y, r.W, r.H, r.Kind, story, r.RampDir); err != nil {
			return fmt.Errorf("archive: save room (%d,%d) of %s: %w", r.X, r.Y, rec.Name, err)
		}
	}

	return tx.Commit()
}

// Get loads the record with the given fingerprint, body included.
func (a *Archive) Get(ctx context.Context, fingerprint string) (Record, error) {
	var rec Record
	var body string
	err := a.db.QueryRowContext(ctx, a.qb.Build(`
		SELECT fingerprint, name, rooms, ramps, stories, deepest, unassigned, body, processed_at
		FROM layouts WHERE fingerprint = ?`), fingerprint).Scan(
		&rec.Fingerprint, &rec.Name, &rec.Rooms, &rec.Ramps, &rec.Stories, &rec.Deepest,
		&rec.Unassigned, &body, &rec.ProcessedAt)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("archive: get %s: %w", fingerprint, err)
	}
	rec.Body = []byte(body)
	return rec, nil
}

// List returns every record without its body, most recent first.
func (a *Archive) List(ctx context.Context) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT fingerprint, name, rooms, ramps, stories, deepest, unassigned, processed_at
		FROM layouts ORDER BY processed_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Fingerprint, &rec.Name, &rec.Rooms, &rec.Ramps, &rec.Stories,
			&rec.Deepest, &rec.Unassigned, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("archive: list: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Rooms returns the stored room annotations of a layout ordered by origin.
func (a *Archive) Rooms(ctx context.Context, fingerprint string) ([]RoomRow, error) {
	rows, err := a.db.QueryContext(ctx, a.qb.Build(`
		SELECT x, y, w, h, kind, story, ramp_dir
		FROM layout_rooms WHERE fingerprint = ? ORDER BY x, y`), fingerprint)
	if err != nil {
		return nil, fmt.Errorf("archive: rooms of %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var result []RoomRow
	for rows.Next() {
		var r RoomRow
		var story sql.NullInt64
		if err := rows.Scan(&r.X, &r.Y, &r.W, &r.H, &r.Kind, &story, &r.RampDir); err != nil {
			return nil, fmt.Errorf("archive: rooms of %s: %w", fingerprint, err)
		}
		if story.Valid {
			r.Story = layout.StoryOf(int(story.Int64))
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		if _, err := a.Get(ctx, fingerprint); err != nil {
			return nil, err
		}
	}
	return result, nil
}
