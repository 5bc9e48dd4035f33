package storage

import (
	"context"
	"errors"
	"time"

	commonstorage "printmonitor/common/storage"
)

var (
	// ErrNotFound is returned when a device doesn't exist
	ErrNotFound = errors.New("device not found")
	// ErrDuplicate is returned when an address is already registered
	ErrDuplicate = errors.New("device already exists")
	// ErrInvalidAddress is returned when the address is empty
	ErrInvalidAddress = errors.New("invalid or empty address")
)

// DeviceStore is the device registry and snapshot sink.
type DeviceStore interface {
	// AddDevice registers address under a generated id. Returns ErrDuplicate
	// if the address is already registered.
	AddDevice(ctx context.Context, address, name, description string) (commonstorage.Device, error)

	// GetDevice returns ErrNotFound if id is unknown.
	GetDevice(ctx context.Context, id string) (commonstorage.Device, error)

	// ListDevices returns every device in registration order.
	ListDevices(ctx context.Context) ([]commonstorage.Device, error)

	// UpdateInfo changes the display name and description only.
	UpdateInfo(ctx context.Context, id, name, description string) (commonstorage.Device, error)

	// RemoveDevice deletes the device and its history.
	RemoveDevice(ctx context.Context, id string) error

	// SaveSnapshot replaces the device's current snapshot and appends it to
	// the history.
	SaveSnapshot(ctx context.Context, id string, snap commonstorage.Snapshot) error

	// History returns up to limit stored snapshots, newest first.
	History(ctx context.Context, id string, limit int) ([]commonstorage.Snapshot, error)

	// PruneHistory deletes history entries polled before cutoff.
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Logger interface for storage operations
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}

var storageLogger Logger

// SetLogger sets the logger for the storage package
func SetLogger(logger Logger) {
	storageLogger = logger
}
