package storage

import (
	"context"
	"sync"
	"time"
)

// HistoryPruner is the part of DeviceStore the retention worker needs.
type HistoryPruner interface {
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionWorker deletes snapshot history older than a fixed age on a
// schedule.
type RetentionWorker struct {
	store  HistoryPruner
	maxAge time.Duration
	every  time.Duration
	now    func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRetentionWorker returns a worker keeping maxAge of history, checked
// every interval (hourly when zero).
func NewRetentionWorker(store HistoryPruner, maxAge, every time.Duration) *RetentionWorker {
	if every <= 0 {
		every = time.Hour
	}
	return &RetentionWorker{
		store:  store,
		maxAge: maxAge,
		every:  every,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// PruneOnce removes history older than maxAge and returns the row count.
func (w *RetentionWorker) PruneOnce(ctx context.Context) (int64, error) {
	if w.maxAge <= 0 {
		return 0, nil
	}
	return w.store.PruneHistory(ctx, w.now().Add(-w.maxAge))
}

// Start prunes immediately and then on every tick until Stop or ctx ends.
// A worker with no max age does nothing.
func (w *RetentionWorker) Start(ctx context.Context) {
	if w.maxAge <= 0 {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.every)
		defer ticker.Stop()

		for {
			if _, err := w.PruneOnce(ctx); err != nil && storageLogger != nil {
				storageLogger.Warn("History pruning failed", "error", err)
			}
			select {
			case <-ticker.C:
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (w *RetentionWorker) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}
