package archive

import "testing"

func TestNewDialect(t *testing.T) {
	if _, ok := NewDialect(DialectSQLite).(*SQLiteDialect); !ok {
		t.Error("sqlite did not yield *SQLiteDialect")
	}
	if _, ok := NewDialect(DialectPostgres).(*PostgresDialect); !ok {
		t.Error("postgres did not yield *PostgresDialect")
	}
	// Unknown and empty drivers default to SQLite
	if _, ok := NewDialect("").(*SQLiteDialect); !ok {
		t.Error("empty driver did not default to *SQLiteDialect")
	}
}

func TestDriverNames(t *testing.T) {
	if got := (&SQLiteDialect{}).DriverName(); got != "sqlite" {
		t.Errorf("SQLite DriverName() = %q, want %q", got, "sqlite")
	}
	if got := (&PostgresDialect{}).DriverName(); got != "postgres" {
		t.Errorf("Postgres DriverName() = %q, want %q", got, "postgres")
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		position int
		sqlite   string
		postgres string
	}{
		{1, "?", "$1"},
		{2, "?", "$2"},
		{10, "?", "$10"},
	}
	for _, tt := range tests {
		if got := (&SQLiteDialect{}).Placeholder(tt.position); got != tt.sqlite {
			t.Errorf("SQLite Placeholder(%d) = %q, want %q", tt.position, got, tt.sqlite)
		}
		if got := (&PostgresDialect{}).Placeholder(tt.position); got != tt.postgres {
			t.Errorf("Postgres Placeholder(%d) = %q, want %q", tt.position, got, tt.postgres)
		}
	}
}

func TestQueryBuilderBuild(t *testing.T) {
	query := "SELECT name FROM layouts WHERE fingerprint = ? AND rooms > ?"

	sqlite := NewQueryBuilder(&SQLiteDialect{})
	if got := sqlite.Build(query); got != query {
		t.Errorf("SQLite Build() = %q, want unchanged", got)
	}

	pg := NewQueryBuilder(&PostgresDialect{})
	want := "SELECT name FROM layouts WHERE fingerprint = $1 AND rooms > $2"
	if got := pg.Build(query); got != want {
		t.Errorf("Postgres Build() = %q, want %q", got, want)
	}
}

func TestQueryBuilderUpsert(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		columns []string
		want    string
	}{
		{
			name:    "sqlite",
			dialect: &SQLiteDialect{},
			columns: []string{"fingerprint", "name", "rooms"},
			want: "INSERT INTO layouts (fingerprint, name, rooms) VALUES (?, ?, ?) " +
				"ON CONFLICT (fingerprint) DO UPDATE SET name = excluded.name, rooms = excluded.rooms",
		},
		{
			name:    "postgres",
			dialect: &PostgresDialect{},
			columns: []string{"fingerprint", "name"},
			want: "INSERT INTO layouts (fingerprint, name) VALUES ($1, $2) " +
				"ON CONFLICT (fingerprint) DO UPDATE SET name = excluded.name",
		},
		{
			name:    "key only",
			dialect: &SQLiteDialect{},
			columns: []string{"fingerprint"},
			want:    "INSERT INTO layouts (fingerprint) VALUES (?) ON CONFLICT (fingerprint) DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewQueryBuilder(tt.dialect).Upsert("layouts", "fingerprint", tt.columns...)
			if got != tt.want {
				t.Errorf("Upsert() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}
