package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	commonstorage "printmonitor/common/storage"
)

// Registry lists the devices to poll.
type Registry interface {
	ListDevices(ctx context.Context) ([]commonstorage.Device, error)
	GetDevice(ctx context.Context, id string) (commonstorage.Device, error)
}

// Sink persists the snapshot a poll produced.
type Sink interface {
	SaveSnapshot(ctx context.Context, deviceID string, snap commonstorage.Snapshot) error
}

// Publisher is told about every stored snapshot, e.g. to push it to live
// dashboards.
type Publisher interface {
	PublishSnapshot(deviceID string, snap commonstorage.Snapshot)
}

// Publishers fans each snapshot out to every non-nil publisher in order.
func Publishers(pubs ...Publisher) Publisher {
	var out multiPublisher
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type multiPublisher []Publisher

func (m multiPublisher) PublishSnapshot(deviceID string, snap commonstorage.Snapshot) {
	for _, p := range m {
		p.PublishSnapshot(deviceID, snap)
	}
}

// SchedulerStatus surfaces loop timings for diagnostics.
type SchedulerStatus struct {
	Running      bool          `json:"running"`
	Interval     time.Duration `json:"interval"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastDevices  int           `json:"last_devices"`
	LastOffline  int           `json:"last_offline"`
	LastError    string        `json:"last_error,omitempty"`
}

// Scheduler polls registered devices on demand or every interval and stores
// the results.
type Scheduler struct {
	poller    *Poller
	registry  Registry
	sink      Sink
	publisher Publisher
	log       Logger
	interval  time.Duration

	// runMu serializes full sweeps so a slow sweep and a manual refresh
	// never poll the same device twice at once.
	runMu sync.Mutex

	mu     sync.RWMutex
	status SchedulerStatus

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler wires a Scheduler. publisher may be nil.
func NewScheduler(p *Poller, registry Registry, sink Sink, publisher Publisher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		poller:    p,
		registry:  registry,
		sink:      sink,
		publisher: publisher,
		log:       p.log,
		interval:  interval,
		status:    SchedulerStatus{Interval: interval},
	}
}

// Status returns the latest loop state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// PollDevice polls one registered device and stores the result. Nothing is
// stored when ctx ends during the poll.
func (s *Scheduler) PollDevice(ctx context.Context, id string) (commonstorage.Snapshot, error) {
	dev, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		return commonstorage.Snapshot{}, err
	}
	snap := s.poller.Poll(ctx, dev.Address, dev.Status)
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	if err := s.store(ctx, dev.ID, snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// PollAllDevices polls every registered device and stores each result. A
// failure to store one snapshot does not stop the others; all such failures
// are joined into the returned error.
func (s *Scheduler) PollAllDevices(ctx context.Context) ([]Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		s.finishRun(start, 0, 0, err)
		return nil, fmt.Errorf("list devices: %w", err)
	}

	targets := make([]Target, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, Target{ID: d.ID, Address: d.Address, Previous: d.Status})
	}
	results := s.poller.PollAll(ctx, targets)

	// Snapshots from a cancelled sweep read Offline only because the sweep
	// was cut short; they are returned but not stored.
	if err := ctx.Err(); err != nil {
		s.finishRun(start, len(results), 0, err)
		return results, err
	}

	var errs []error
	offline := 0
	for _, r := range results {
		if r.Snapshot.OperationalStatus == commonstorage.StatusOffline {
			offline++
		}
		if err := s.store(ctx, r.Target.ID, r.Snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	err = errors.Join(errs...)
	s.finishRun(start, len(results), offline, err)
	return results, err
}

func (s *Scheduler) store(ctx context.Context, id string, snap commonstorage.Snapshot) error {
	if err := s.sink.SaveSnapshot(ctx, id, snap); err != nil {
		s.log.Error("Failed to save snapshot", "device_id", id, "error", err)
		return fmt.Errorf("save snapshot for %s: %w", id, err)
	}
	if s.publisher != nil {
		s.publisher.PublishSnapshot(id, snap)
	}
	return nil
}

func (s *Scheduler) finishRun(start time.Time, devices, offline int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRun = start
	s.status.LastDuration = time.Since(start)
	s.status.LastDevices = devices
	s.status.LastOffline = offline
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
}

// Start runs a sweep immediately and then once per interval until Stop is
// called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return
	}
	s.status.Running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.loop(ctx)
	}()

	s.log.Info("Poll scheduler started", "interval", s.interval)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.status.Running {
		s.mu.Unlock()
		return
	}
	s.status.Running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("Poll scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	stop := s.stopCh
	sweep := func() {
		sweepCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-sweepCtx.Done():
			}
		}()
		results, err := s.PollAllDevices(sweepCtx)
		if err != nil {
			s.log.Warn("Poll sweep finished with errors", "devices", len(results), "error", err)
			return
		}
		s.log.Debug("Poll sweep finished", "devices", len(results))
	}

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
