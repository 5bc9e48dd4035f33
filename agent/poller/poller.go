// Package poller turns a printer address into a status snapshot. A poll never
// fails: unreachable devices come back as the previous snapshot marked
// Offline, and every other problem only defaults the affected field.
package poller

import (
	"context"
	"errors"
	"time"

	"printmonitor/agent/scanner"
	"printmonitor/agent/scanner/vendor"
	"printmonitor/common/logger"
	"printmonitor/common/snmp/oids"
	commonstorage "printmonitor/common/storage"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds PollAll when Config.Concurrency is unset.
const DefaultConcurrency = 8

// Poll outcomes reported to the Observer.
const (
	OutcomeOK      = "ok"
	OutcomeOffline = "offline"
)

// Logger interface for poller operations
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}

// Observer receives poll outcomes in addition to the per-attempt results a
// scanner.Recorder sees.
type Observer interface {
	scanner.Recorder
	RecordPoll(outcome string, elapsed time.Duration)
}

// Config controls how devices are queried.
type Config struct {
	SNMP          scanner.Config
	OIDs          oids.Set
	PageCountMode vendor.PageCountMode
	Concurrency   int
}

// DefaultConfig returns the stock transport settings and identifier set.
func DefaultConfig() Config {
	return Config{
		SNMP:          scanner.DefaultConfig(),
		OIDs:          oids.Defaults(),
		PageCountMode: vendor.PageCountSum,
		Concurrency:   DefaultConcurrency,
	}
}

// Option configures a Poller.
type Option func(*Poller)

// WithClientFactory overrides how SNMP transports are opened.
func WithClientFactory(f scanner.ClientFactory) Option {
	return func(p *Poller) { p.factory = f }
}

// WithObserver attaches metrics collection.
func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

// WithLogger replaces the package-global logger.
func WithLogger(l Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// Poller is safe for concurrent use; each Poll opens its own session.
type Poller struct {
	cfg      Config
	factory  scanner.ClientFactory
	observer Observer
	log      Logger
	now      func() time.Time
}

// New builds a Poller, filling unset configuration from DefaultConfig.
func New(cfg Config, opts ...Option) *Poller {
	def := DefaultConfig()
	if cfg.SNMP.GetTimeout <= 0 {
		cfg.SNMP.GetTimeout = def.SNMP.GetTimeout
	}
	if cfg.SNMP.WalkTimeout <= 0 {
		cfg.SNMP.WalkTimeout = def.SNMP.WalkTimeout
	}
	if len(cfg.SNMP.Versions) == 0 {
		cfg.SNMP.Versions = def.SNMP.Versions
	}
	if cfg.SNMP.Community == "" {
		cfg.SNMP.Community = def.SNMP.Community
	}
	cfg.OIDs = cfg.OIDs.WithDefaults()
	if cfg.PageCountMode == "" {
		cfg.PageCountMode = vendor.PageCountSum
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	p := &Poller{cfg: cfg, log: globalLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration.
func (p *Poller) Config() Config { return p.cfg }

// Poll queries the device at address and returns a fresh snapshot. previous
// is only read, and only used when the device cannot be reached.
func (p *Poller) Poll(ctx context.Context, address string, previous *commonstorage.Snapshot) commonstorage.Snapshot {
	start := p.now()

	opts := []scanner.Option{scanner.WithClientFactory(p.factory)}
	if p.observer != nil {
		opts = append(opts, scanner.WithRecorder(p.observer))
	}
	sess, err := scanner.Open(ctx, address, p.cfg.SNMP, opts...)
	if err != nil {
		return p.degrade(address, previous, start, err)
	}
	defer sess.Close()

	set := p.cfg.OIDs
	snap := commonstorage.EmptySnapshot()
	snap.PolledAt = start

	model, ok := sess.Get(ctx, set.Model)
	if ctx.Err() != nil {
		return p.degrade(address, previous, start, ctx.Err())
	}
	if !ok && !sess.Responded() {
		return p.degrade(address, previous, start, scanner.ErrUnreachable)
	}
	if ok && model != "" {
		snap.Model = model
	}

	if serial, ok := sess.Get(ctx, set.Serial); ok && serial != "" {
		snap.SerialNumber = serial
	}
	if raw, ok := sess.Get(ctx, set.Status); ok {
		snap.OperationalStatus = commonstorage.ParseOperationalStatus(raw)
	}

	snap.ActiveAlerts = ExtractAlerts(ctx, sess, set)
	snap.InputTrayStatus = ExtractTrays(ctx, sess, set)

	profile := vendor.Resolve(snap.Model)
	env := vendor.Env{OIDs: set, PageCountMode: p.cfg.PageCountMode}
	if levels := profile.Consumables(ctx, sess, env); levels != nil {
		snap.ConsumableLevels = levels
	}
	if n := profile.PageCount(ctx, sess, env); n > 0 {
		snap.TotalPageCount = n
	}
	snap.IsColor = commonstorage.HasColorConsumable(snap.ConsumableLevels)

	// A cancelled poll may have cut any step short; don't publish a half-read
	// snapshot as if it were fresh.
	if ctx.Err() != nil {
		return p.degrade(address, previous, start, ctx.Err())
	}

	elapsed := p.now().Sub(start)
	p.log.Debug("Poll complete",
		"address", address,
		"profile", profile.Name,
		"status", snap.OperationalStatus,
		"consumables", len(snap.ConsumableLevels),
		"alerts", len(snap.ActiveAlerts),
		"trays", len(snap.InputTrayStatus),
		"duration_ms", elapsed.Milliseconds())
	if p.observer != nil {
		p.observer.RecordPoll(OutcomeOK, elapsed)
	}
	return snap
}

func (p *Poller) degrade(address string, previous *commonstorage.Snapshot, start time.Time, reason error) commonstorage.Snapshot {
	elapsed := p.now().Sub(start)
	if errors.Is(reason, context.Canceled) {
		p.log.Debug("Poll cancelled, keeping last known state", "address", address)
	} else {
		p.log.Warn("Device unreachable, keeping last known state", "address", address, "error", reason)
	}
	if p.observer != nil {
		p.observer.RecordPoll(OutcomeOffline, elapsed)
	}
	return commonstorage.Degrade(previous, start)
}

// Target is one device to poll.
type Target struct {
	ID       string
	Address  string
	Previous *commonstorage.Snapshot
}

// Result pairs a target with the snapshot its poll produced.
type Result struct {
	Target   Target
	Snapshot commonstorage.Snapshot
}

// PollAll polls every target with at most Config.Concurrency polls in flight.
// Results are returned in input order.
func (p *Poller) PollAll(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = Result{Target: t, Snapshot: p.Poll(ctx, t.Address, t.Previous)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// globalLogger forwards to logger.Global when it has been initialized.
type globalLogger struct{}

func (globalLogger) Error(msg string, context ...interface{}) {
	if logger.Global != nil {
		logger.Global.Error(msg, context...)
	}
}

func (globalLogger) Warn(msg string, context ...interface{}) {
	if logger.Global != nil {
		logger.Global.Warn(msg, context...)
	}
}

func (globalLogger) Info(msg string, context ...interface{}) {
	if logger.Global != nil {
		logger.Global.Info(msg, context...)
	}
}

func (globalLogger) Debug(msg string, context ...interface{}) {
	if logger.Global != nil {
		logger.Global.Debug(msg, context...)
	}
}
