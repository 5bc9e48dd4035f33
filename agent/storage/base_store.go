package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonstorage "printmonitor/common/storage"

	"github.com/google/uuid"
)

// BaseStore implements DeviceStore on database/sql. Queries are written with
// ? placeholders and rebound for the dialect.
type BaseStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ DeviceStore = (*BaseStore)(nil)

// NewBaseStore wraps an open database. The schema must already exist; use
// InitSchema or one of the Open helpers.
func NewBaseStore(db *sql.DB, dialect Dialect) *BaseStore {
	return &BaseStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// Dialect returns the SQL dialect in use.
func (s *BaseStore) Dialect() Dialect { return s.dialect }

// DB exposes the underlying handle for health checks.
func (s *BaseStore) DB() *sql.DB { return s.db }

func (s *BaseStore) rebind(query string) string {
	if s.dialect.Name() == "postgres" {
		return ConvertPlaceholders(query)
	}
	return query
}

// InitSchema creates the tables if they don't exist.
func (s *BaseStore) InitSchema(ctx context.Context) error {
	d := s.dialect
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS devices (
			id %[1]s PRIMARY KEY,
			address %[1]s NOT NULL UNIQUE,
			name %[1]s NOT NULL DEFAULT '',
			description %[1]s NOT NULL DEFAULT '',
			status %[1]s,
			created_at %[2]s NOT NULL,
			updated_at %[2]s NOT NULL
		)`, d.TextType(), d.TimestampType()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS snapshot_history (
			id %[1]s,
			device_id %[2]s NOT NULL,
			operational_status %[2]s NOT NULL,
			snapshot %[2]s NOT NULL,
			polled_at %[3]s NOT NULL
		)`, d.AutoIncrement(true), d.TextType(), d.TimestampType()),
		`CREATE INDEX IF NOT EXISTS idx_snapshot_history_device ON snapshot_history(device_id, polled_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

const deviceColumns = `id, address, name, description, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (commonstorage.Device, error) {
	var (
		d      commonstorage.Device
		status sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Address, &d.Name, &d.Description, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	if status.Valid && status.String != "" {
		var snap commonstorage.Snapshot
		if err := json.Unmarshal([]byte(status.String), &snap); err != nil {
			return d, fmt.Errorf("decode status of %s: %w", d.ID, err)
		}
		d.Status = &snap
	}
	return d, nil
}

// AddDevice registers a new device.
func (s *BaseStore) AddDevice(ctx context.Context, address, name, description string) (commonstorage.Device, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return commonstorage.Device{}, ErrInvalidAddress
	}

	var existing string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM devices WHERE address = ?`), address).Scan(&existing)
	if err == nil {
		return commonstorage.Device{}, fmt.Errorf("%w: %s", ErrDuplicate, address)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return commonstorage.Device{}, fmt.Errorf("check address: %w", err)
	}

	now := s.now()
	d := commonstorage.Device{
		ID:          uuid.NewString(),
		Address:     address,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO devices (id, address, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`), d.ID, d.Address, d.Name, d.Description, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return commonstorage.Device{}, fmt.Errorf("insert device: %w", err)
	}
	if storageLogger != nil {
		storageLogger.Info("Device registered", "id", d.ID, "address", d.Address)
	}
	return d, nil
}

// GetDevice retrieves a device by id.
func (s *BaseStore) GetDevice(ctx context.Context, id string) (commonstorage.Device, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+deviceColumns+` FROM devices WHERE id = ?`), id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commonstorage.Device{}, ErrNotFound
	}
	if err != nil {
		return commonstorage.Device{}, err
	}
	return d, nil
}

// ListDevices returns all devices in registration order.
func (s *BaseStore) ListDevices(ctx context.Context) ([]commonstorage.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := []commonstorage.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// UpdateInfo changes the display fields of a device.
func (s *BaseStore) UpdateInfo(ctx context.Context, id, name, description string) (commonstorage.Device, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE devices SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		strings.TrimSpace(name), strings.TrimSpace(description), s.now(), id)
	if err != nil {
		return commonstorage.Device{}, fmt.Errorf("update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonstorage.Device{}, ErrNotFound
	}
	return s.GetDevice(ctx, id)
}

// RemoveDevice deletes a device and its history in one transaction.
func (s *BaseStore) RemoveDevice(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM snapshot_history WHERE device_id = ?`), id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM devices WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if storageLogger != nil {
		storageLogger.Info("Device removed", "id", id)
	}
	return nil
}

// SaveSnapshot stores snap as the device's current status and appends it
// to the history.
func (s *BaseStore) SaveSnapshot(ctx context.Context, id string, snap commonstorage.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	polledAt := snap.PolledAt
	if polledAt.IsZero() {
		polledAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE devices SET status = ?, updated_at = ? WHERE id = ?`),
		string(payload), s.now(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO snapshot_history (device_id, operational_status, snapshot, polled_at)
		VALUES (?, ?, ?, ?)`), id, string(snap.OperationalStatus), string(payload), polledAt.UTC())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return tx.Commit()
}

// History returns stored snapshots for a device, newest first.
func (s *BaseStore) History(ctx context.Context, id string, limit int) ([]commonstorage.Snapshot, error) {
	if _, err := s.GetDevice(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(fmt.Sprintf(
		`SELECT snapshot FROM snapshot_history WHERE device_id = ? ORDER BY polled_at DESC, id DESC LIMIT %d`, limit)), id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []commonstorage.Snapshot{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var snap commonstorage.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// PruneHistory deletes history entries polled before cutoff.
func (s *BaseStore) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM snapshot_history WHERE polled_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 && storageLogger != nil {
		storageLogger.Debug("Pruned snapshot history", "rows", n, "cutoff", cutoff)
	}
	return n, nil
}

// Close closes the database.
func (s *BaseStore) Close() error {
	return s.db.Close()
}
