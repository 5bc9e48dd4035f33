package storage

import (
	"context"
	"testing"
	"time"

	"printmonitor/common/config"
	commonstorage "printmonitor/common/storage"
)

// newTestStore returns an in-memory store closed at the end of the test.
func newTestStore(t *testing.T) *BaseStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestSnapshot builds a fully populated snapshot polled at at.
func newTestSnapshot(model string, black int, at time.Time) commonstorage.Snapshot {
	return commonstorage.Snapshot{
		Model:             model,
		SerialNumber:      "SN-" + model,
		OperationalStatus: commonstorage.StatusRunning,
		ConsumableLevels:  map[string]int{"Black": black},
		InputTrayStatus:   map[string]commonstorage.TrayStatus{"Tray 1": commonstorage.TrayReady},
		ActiveAlerts:      []string{},
		TotalPageCount:    100,
		PolledAt:          at,
	}
}

func configForTest(driver, dsn string) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: driver, Path: ":memory:", DSN: dsn}
}
