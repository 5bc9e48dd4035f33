package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import postgres driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgresStore connects to PostgreSQL using a pgx connection string.
func NewPostgresStore(ctx context.Context, dsn string) (*BaseStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("invalid database configuration: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := NewBaseStore(db, &PostgresDialect{})
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if storageLogger != nil {
		storageLogger.Info("Opened PostgreSQL database")
	}
	return store, nil
}
