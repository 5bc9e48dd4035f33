package storage

import (
	"context"

	"printmonitor/common/config"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*BaseStore, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if dialect.Name() == "postgres" {
		return NewPostgresStore(ctx, cfg.DSN)
	}
	return NewSQLiteStore(ctx, cfg.Path)
}
