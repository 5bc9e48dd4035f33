package storage

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestParseOperationalStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want OperationalStatus
	}{
		{"1", StatusUnknown},
		{"2", StatusRunning},
		{" 3 ", StatusAttention},
		{"4", StatusError},
		{"5", StatusError},
		{"", StatusUnknown},
		{"99", StatusUnknown},
		{"running", StatusUnknown},
	}
	for _, tt := range tests {
		got := ParseOperationalStatus(tt.raw)
		if got != tt.want {
			t.Errorf("ParseOperationalStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		if got == StatusOffline {
			t.Errorf("ParseOperationalStatus(%q) must never yield Offline", tt.raw)
		}
	}
}

func TestParseTrayStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want TrayStatus
	}{
		{"0", TrayReady},
		{"1", TrayReady},
		{"2", TrayEmpty},
		{"3", TrayError},
		{"4", TrayOutOfService},
		{"7", TrayUnknown},
		{"", TrayUnknown},
	}
	for _, tt := range tests {
		if got := ParseTrayStatus(tt.raw); got != tt.want {
			t.Errorf("ParseTrayStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDegradeKeepsPreviousFields(t *testing.T) {
	t.Parallel()

	prev := Snapshot{
		Model:             "RICOH MP C5200",
		SerialNumber:      "E123",
		OperationalStatus: StatusRunning,
		ConsumableLevels:  map[string]int{ColorBlack: 42},
		InputTrayStatus:   map[string]TrayStatus{"Tray 1": TrayReady},
		ActiveAlerts:      []string{"Low Toner"},
		TotalPageCount:    1000,
		IsColor:           false,
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Degrade(&prev, now)

	if got.OperationalStatus != StatusOffline {
		t.Errorf("status = %q, want Offline", got.OperationalStatus)
	}
	if got.ConsumableLevels[ColorBlack] != 42 || len(got.ConsumableLevels) != 1 {
		t.Errorf("consumables = %v, want {Black:42}", got.ConsumableLevels)
	}
	if got.Model != prev.Model || got.SerialNumber != prev.SerialNumber || got.TotalPageCount != 1000 {
		t.Errorf("scalar fields not carried over: %+v", got)
	}
	if !got.PolledAt.Equal(now) {
		t.Errorf("polledAt = %v", got.PolledAt)
	}

	got.ConsumableLevels[ColorBlack] = 0
	got.ActiveAlerts[0] = "changed"
	if prev.ConsumableLevels[ColorBlack] != 42 || prev.ActiveAlerts[0] != "Low Toner" {
		t.Error("Degrade must not share collections with previous")
	}
	if prev.OperationalStatus != StatusRunning {
		t.Error("Degrade must not modify previous")
	}
}

func TestDegradeWithoutPrevious(t *testing.T) {
	t.Parallel()

	got := Degrade(nil, time.Now())
	want := EmptySnapshot()
	want.OperationalStatus = StatusOffline
	want.PolledAt = got.PolledAt

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Degrade(nil) = %+v, want %+v", got, want)
	}
	if got.ActiveAlerts == nil {
		t.Error("alerts must be an empty slice, not nil")
	}
}

func TestHasColorConsumable(t *testing.T) {
	t.Parallel()

	if HasColorConsumable(map[string]int{ColorBlack: 80}) {
		t.Error("mono device reported as color")
	}
	if !HasColorConsumable(map[string]int{ColorBlack: 80, ColorCyan: 0}) {
		t.Error("empty cyan cartridge still marks the device as color")
	}
	if HasColorConsumable(nil) {
		t.Error("nil levels reported as color")
	}
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(EmptySnapshot())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"model", "serialNumber", "operationalStatus", "consumableLevels",
		"inputTrayStatus", "activeAlerts", "totalPageCount", "isColor", "polledAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing JSON key %q", key)
		}
	}
	if alerts, ok := raw["activeAlerts"].([]interface{}); !ok || len(alerts) != 0 {
		t.Errorf("activeAlerts should encode as [], got %v", raw["activeAlerts"])
	}
}
