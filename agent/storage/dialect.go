package storage

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL differences between SQLite and PostgreSQL so one
// store implementation serves both.
type Dialect interface {
	// Name returns "sqlite" or "postgres".
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// Placeholder returns the parameter placeholder for a 1-based index.
	Placeholder(index int) string

	// AutoIncrement returns the column definition of an auto-incrementing
	// primary key.
	AutoIncrement(big bool) string

	TimestampType() string
	TextType() string
}

// SQLiteDialect implements Dialect for modernc.org/sqlite.
type SQLiteDialect struct{}

var _ Dialect = (*SQLiteDialect)(nil)

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) AutoIncrement(big bool) string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) TimestampType() string { return "DATETIME" }
func (d *SQLiteDialect) TextType() string      { return "TEXT" }

// PostgresDialect implements Dialect for PostgreSQL through pgx's
// database/sql driver.
type PostgresDialect struct{}

var _ Dialect = (*PostgresDialect)(nil)

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) AutoIncrement(big bool) string {
	if big {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "SERIAL PRIMARY KEY"
}

func (d *PostgresDialect) TimestampType() string { return "TIMESTAMPTZ" }
func (d *PostgresDialect) TextType() string      { return "TEXT" }

// ConvertPlaceholders converts ? placeholders to $n, so queries are written
// once in SQLite style.
func ConvertPlaceholders(query string) string {
	var result strings.Builder
	result.Grow(len(query) + 10)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return &SQLiteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return &PostgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
