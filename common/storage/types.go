// Package storage provides the data structures shared by the poller, the
// device store and the HTTP API.
package storage

import (
	"time"
)

// Unavailable is stored in free-text snapshot fields the device did not report.
const Unavailable = "unavailable"

// Consumable color keys used in Snapshot.ConsumableLevels.
const (
	ColorBlack   = "Black"
	ColorCyan    = "Cyan"
	ColorMagenta = "Magenta"
	ColorYellow  = "Yellow"
)

// Device is a registered printer. The poller only reads Address and Status;
// identity and display fields belong to the device store.
type Device struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      *Snapshot `json:"status,omitempty"` // nil until the first poll is stored
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot is the normalized result of one poll. It is treated as immutable
// once built; use Clone before deriving a new value from an existing one.
type Snapshot struct {
	Model             string                `json:"model"`
	SerialNumber      string                `json:"serialNumber"`
	OperationalStatus OperationalStatus     `json:"operationalStatus"`
	ConsumableLevels  map[string]int        `json:"consumableLevels"`
	InputTrayStatus   map[string]TrayStatus `json:"inputTrayStatus"`
	ActiveAlerts      []string              `json:"activeAlerts"`
	TotalPageCount    int                   `json:"totalPageCount"`
	IsColor           bool                  `json:"isColor"`
	PolledAt          time.Time             `json:"polledAt"`
}
