package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// NewSQLiteStore opens (creating if needed) a SQLite database at dbPath.
// If dbPath is empty, uses an in-memory database.
func NewSQLiteStore(ctx context.Context, dbPath string) (*BaseStore, error) {
	memory := dbPath == "" || dbPath == ":memory:"
	if memory {
		dbPath = ":memory:"
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pool connection is configured.
	dsn := dbPath
	if !memory {
		dsn += "?" + url.Values{
			"_pragma": []string{
				"busy_timeout(30000)",
				"journal_mode(WAL)",
				"synchronous(NORMAL)",
			},
		}.Encode()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	store := NewBaseStore(db, &SQLiteDialect{})
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if storageLogger != nil {
		storageLogger.Info("Opened SQLite database", "path", dbPath)
	}
	return store, nil
}
