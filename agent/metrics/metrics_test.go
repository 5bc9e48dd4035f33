package metrics

import (
	"strings"
	"testing"
	"time"

	commonstorage "printmonitor/common/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPollAndAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPollMetrics(reg)

	m.RecordPoll("ok", 300*time.Millisecond)
	m.RecordPoll("ok", 200*time.Millisecond)
	m.RecordPoll("offline", 3*time.Second)
	m.RecordAttempt("get", "v2c", "timeout", 1500*time.Millisecond)
	m.RecordAttempt("get", "v1", "ok", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.pollsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("polls ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pollsTotal.WithLabelValues("offline")); got != 1 {
		t.Errorf("polls offline = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.attemptsTotal.WithLabelValues("get", "v2c", "timeout")); got != 1 {
		t.Errorf("v2c timeouts = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.pollDuration); n != 1 {
		t.Errorf("poll duration collectors = %d, want 1", n)
	}
}

func TestPublishSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPollMetrics(reg)

	m.PublishSnapshot("dev-1", commonstorage.Snapshot{
		OperationalStatus: commonstorage.StatusRunning,
		ConsumableLevels:  map[string]int{"Black": 42, "Cyan": 0},
		TotalPageCount:    1234,
	})

	expected := `
# HELP printmonitor_device_consumable_level_percent Last known consumable level per device and color
# TYPE printmonitor_device_consumable_level_percent gauge
printmonitor_device_consumable_level_percent{color="Black",device="dev-1"} 42
printmonitor_device_consumable_level_percent{color="Cyan",device="dev-1"} 0
`
	if err := testutil.CollectAndCompare(m.consumableLevel, strings.NewReader(expected)); err != nil {
		t.Errorf("consumable gauges: %v", err)
	}
	if got := testutil.ToFloat64(m.deviceUp.WithLabelValues("dev-1")); got != 1 {
		t.Errorf("up = %v, want 1", got)
	}

	// An offline snapshot without Cyan drops the Cyan series.
	m.PublishSnapshot("dev-1", commonstorage.Snapshot{
		OperationalStatus: commonstorage.StatusOffline,
		ConsumableLevels:  map[string]int{"Black": 42},
		TotalPageCount:    1234,
	})
	if n := testutil.CollectAndCount(m.consumableLevel); n != 1 {
		t.Errorf("consumable series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.deviceUp.WithLabelValues("dev-1")); got != 0 {
		t.Errorf("up = %v, want 0", got)
	}

	m.ForgetDevice("dev-1")
	if n := testutil.CollectAndCount(m.consumableLevel) + testutil.CollectAndCount(m.pageCount); n != 0 {
		t.Errorf("series after ForgetDevice = %d, want 0", n)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *PollMetrics
	m.RecordPoll("ok", time.Second)
	m.RecordAttempt("walk", "v1", "empty", time.Second)
	m.PublishSnapshot("x", commonstorage.Snapshot{})
	m.ForgetDevice("x")
}
