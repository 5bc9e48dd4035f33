package storage

import "strings"

// OperationalStatus is the overall device state reported in a Snapshot.
type OperationalStatus string

const (
	StatusRunning     OperationalStatus = "Running"
	StatusAttention   OperationalStatus = "Attention"
	StatusError       OperationalStatus = "Error"
	StatusUnavailable OperationalStatus = "Unavailable"
	StatusOffline     OperationalStatus = "Offline"
	StatusUnknown     OperationalStatus = "Unknown"
)

// TrayStatus is the state of one input tray.
type TrayStatus string

const (
	TrayReady        TrayStatus = "Ready"
	TrayEmpty        TrayStatus = "Empty"
	TrayError        TrayStatus = "Error"
	TrayOutOfService TrayStatus = "OutOfService"
	TrayUnknown      TrayStatus = "Unknown"
)

// hrDeviceStatus values. Offline never comes from this table: it is reserved
// for devices that could not be reached.
var operationalStatusCodes = map[string]OperationalStatus{
	"1": StatusUnknown,
	"2": StatusRunning,
	"3": StatusAttention,
	"4": StatusError,
	"5": StatusError,
}

var trayStatusCodes = map[string]TrayStatus{
	"0": TrayReady,
	"1": TrayReady,
	"2": TrayEmpty,
	"3": TrayError,
	"4": TrayOutOfService,
}

// ParseOperationalStatus maps a raw hrDeviceStatus code to an
// OperationalStatus. Unrecognized codes map to StatusUnknown.
func ParseOperationalStatus(raw string) OperationalStatus {
	if s, ok := operationalStatusCodes[strings.TrimSpace(raw)]; ok {
		return s
	}
	return StatusUnknown
}

// ParseTrayStatus maps a raw input status code to a TrayStatus.
// Unrecognized codes map to TrayUnknown.
func ParseTrayStatus(raw string) TrayStatus {
	if s, ok := trayStatusCodes[strings.TrimSpace(raw)]; ok {
		return s
	}
	return TrayUnknown
}

// Valid reports whether s is one of the defined statuses.
func (s OperationalStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusAttention, StatusError, StatusUnavailable, StatusOffline, StatusUnknown:
		return true
	}
	return false
}
