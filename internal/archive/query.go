package archive

import (
	"strings"
)

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders to dialect-specific placeholders.
//
//	input:    "SELECT name FROM layouts WHERE fingerprint = ?"
//	SQLite:   "SELECT name FROM layouts WHERE fingerprint = ?"
//	Postgres: "SELECT name FROM layouts WHERE fingerprint = $1"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1

	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}

	return result.String()
}

// Upsert builds an INSERT that replaces the row sharing key. Both SQLite
// and PostgreSQL accept the ON CONFLICT form.
//
//	Upsert("layouts", "fingerprint", "fingerprint", "name")
//	SQLite: "INSERT INTO layouts (fingerprint, name) VALUES (?, ?)
//	         ON CONFLICT (fingerprint) DO UPDATE SET name = excluded.name"
func (qb *QueryBuilder) Upsert(table, key string, columns ...string) string {
	marks := make([]string, len(columns))
	var updates []string
	for i, c := range columns {
		marks[i] = "?"
		if c != key {
			updates = append(updates, c+" = excluded."+c)
		}
	}

	query := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") ON CONFLICT (" + key + ")"
	if len(updates) == 0 {
		query += " DO NOTHING"
	} else {
		query += " DO UPDATE SET " + strings.Join(updates, ", ")
	}
	return qb.Build(query)
}
