package storage

import (
	"context"
	"testing"
	"time"
)

func TestRetentionWorkerPruneOnce(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	d, _ := s.AddDevice(ctx, "10.0.0.1", "", "")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, 2 * 24 * time.Hour} {
		if err := s.SaveSnapshot(ctx, d.ID, newTestSnapshot("M", 10, now.Add(-age))); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	w := NewRetentionWorker(s, 30*24*time.Hour, time.Hour)
	w.now = func() time.Time { return now }
	n, err := w.PruneOnce(ctx)
	if err != nil {
		t.Fatalf("PruneOnce: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}
	if hist, _ := s.History(ctx, d.ID, 0); len(hist) != 1 {
		t.Errorf("history has %d entries, want 1", len(hist))
	}
}

func TestRetentionWorkerDisabled(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	w := NewRetentionWorker(s, 0, time.Millisecond)
	if n, err := w.PruneOnce(context.Background()); n != 0 || err != nil {
		t.Errorf("PruneOnce = %d, %v; want 0, nil", n, err)
	}
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestRetentionWorkerStartStop(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	w := NewRetentionWorker(s, time.Hour, 5*time.Millisecond)
	w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
