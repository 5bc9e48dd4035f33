// Package metrics exposes Prometheus instrumentation for device polling.
package metrics

import (
	"time"

	commonstorage "printmonitor/common/storage"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "printmonitor"

// PollMetrics implements poller.Observer and poller.Publisher.
type PollMetrics struct {
	pollsTotal      *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	consumableLevel *prometheus.GaugeVec
	pageCount       *prometheus.GaugeVec
	deviceUp        *prometheus.GaugeVec
}

// NewPollMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "total",
				Help:      "Total device polls by outcome",
			},
			[]string{"outcome"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "duration_seconds",
				Help:      "Wall time of one device poll",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "snmp",
				Name:      "attempts_total",
				Help:      "Total SNMP attempts by operation, protocol version and result",
			},
			[]string{"operation", "version", "result"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "snmp",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of one SNMP attempt",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2.5, 5},
			},
			[]string{"operation", "version"},
		),
		consumableLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "device",
				Name:      "consumable_level_percent",
				Help:      "Last known consumable level per device and color",
			},
			[]string{"device", "color"},
		),
		pageCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "device",
				Name:      "page_count",
				Help:      "Last known total page counter per device",
			},
			[]string{"device"},
		),
		deviceUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "device",
				Name:      "up",
				Help:      "1 when the last poll reached the device, 0 when it was offline",
			},
			[]string{"device"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.pollsTotal,
			m.pollDuration,
			m.attemptsTotal,
			m.attemptDuration,
			m.consumableLevel,
			m.pageCount,
			m.deviceUp,
		)
	}
	return m
}

// RecordPoll counts one finished poll.
func (m *PollMetrics) RecordPoll(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(outcome).Inc()
	m.pollDuration.Observe(elapsed.Seconds())
}

// RecordAttempt counts one SNMP attempt.
func (m *PollMetrics) RecordAttempt(operation, version, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(operation, version, result).Inc()
	m.attemptDuration.WithLabelValues(operation, version).Observe(elapsed.Seconds())
}

// PublishSnapshot updates the per-device gauges from a stored snapshot.
// Colors absent from the snapshot are removed so stale series disappear.
func (m *PollMetrics) PublishSnapshot(deviceID string, snap commonstorage.Snapshot) {
	if m == nil {
		return
	}
	for _, color := range []string{commonstorage.ColorBlack, commonstorage.ColorCyan, commonstorage.ColorMagenta, commonstorage.ColorYellow} {
		if level, ok := snap.ConsumableLevels[color]; ok {
			m.consumableLevel.WithLabelValues(deviceID, color).Set(float64(level))
		} else {
			m.consumableLevel.DeleteLabelValues(deviceID, color)
		}
	}
	m.pageCount.WithLabelValues(deviceID).Set(float64(snap.TotalPageCount))

	up := 1.0
	if snap.OperationalStatus == commonstorage.StatusOffline {
		up = 0
	}
	m.deviceUp.WithLabelValues(deviceID).Set(up)
}

// ForgetDevice drops every per-device series, e.g. after the device is removed.
func (m *PollMetrics) ForgetDevice(deviceID string) {
	if m == nil {
		return
	}
	m.consumableLevel.DeletePartialMatch(prometheus.Labels{"device": deviceID})
	m.pageCount.DeleteLabelValues(deviceID)
	m.deviceUp.DeleteLabelValues(deviceID)
}
