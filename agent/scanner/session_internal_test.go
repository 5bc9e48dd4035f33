package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("walk: %w", context.DeadlineExceeded), true},
		{"net timeout", timeoutNetError{}, true},
		{"gosnmp request timeout", errors.New("request timeout (after 3 retries)"), true},
		{"refused", errors.New("connection refused"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isTimeout(tt.err); got != tt.want {
			t.Errorf("%s: isTimeout(%v) = %v, want %v", tt.name, tt.err, got, tt.want)
		}
	}
}

func TestAttemptResult(t *testing.T) {
	t.Parallel()

	gosnmpTimeout := errors.New("request timeout (after 0 retries)")
	if got := attemptResult(false, gosnmpTimeout, isTimeout(gosnmpTimeout)); got != "timeout" {
		t.Errorf("gosnmp timeout = %q, want timeout", got)
	}
	if got := attemptResult(false, errors.New("connection refused"), false); got != "error" {
		t.Errorf("refused = %q, want error", got)
	}
	if got := attemptResult(true, nil, false); got != "ok" {
		t.Errorf("data = %q, want ok", got)
	}
	if got := attemptResult(false, nil, false); got != "empty" {
		t.Errorf("no data = %q, want empty", got)
	}
}

// partialClient returns whatever rows it has and then fails the request.
type partialClient struct {
	rows []gosnmp.SnmpPDU
	err  error
}

func (c *partialClient) Get(context.Context, []string) (*gosnmp.SnmpPacket, error) {
	return nil, c.err
}

func (c *partialClient) Walk(_ context.Context, _ string, fn gosnmp.WalkFunc) error {
	for _, pdu := range c.rows {
		if err := fn(pdu); err != nil {
			return err
		}
	}
	return c.err
}

func (c *partialClient) Close() error { return nil }

func TestWithFallbackPartialDataCountsAsResponse(t *testing.T) {
	t.Parallel()

	client := &partialClient{err: errors.New("request timeout (after 0 retries)")}
	s := &Session{
		target:  "10.0.0.9",
		cfg:     Config{GetTimeout: 50 * time.Millisecond, WalkTimeout: 50 * time.Millisecond},
		clients: []versionedClient{{version: gosnmp.Version2c, client: client}},
	}

	got, ok := withFallback(context.Background(), s, "walk", s.cfg.WalkTimeout,
		func(ctx context.Context, c SNMPClient) ([]string, bool, error) {
			return []string{"Tray 1"}, true, errors.New("request timeout (after 0 retries)")
		})
	if !ok || len(got) != 1 {
		t.Fatalf("withFallback = (%v, %v), want partial data", got, ok)
	}
	if !s.Responded() {
		t.Error("Responded() = false after an attempt that returned data")
	}

	silent := &Session{
		target:  "10.0.0.9",
		cfg:     s.cfg,
		clients: []versionedClient{{version: gosnmp.Version2c, client: client}},
	}
	if _, ok := silent.Get(context.Background(), "1.3.6.1.2.1.1.1.0"); ok {
		t.Fatal("Get returned data from a timed-out client")
	}
	if silent.Responded() {
		t.Error("Responded() = true for a client that only timed out")
	}
}

func TestWalkKeepsPartialRowsBeforeError(t *testing.T) {
	t.Parallel()

	root := "1.3.6.1.2.1.43.8.2.1.13"
	client := &partialClient{
		rows: []gosnmp.SnmpPDU{
			{Name: "." + root + ".1.1", Type: gosnmp.OctetString, Value: []byte("Tray 1")},
		},
		err: errors.New("request timeout (after 0 retries)"),
	}
	s := &Session{
		target:  "10.0.0.9",
		cfg:     Config{WalkTimeout: 50 * time.Millisecond},
		clients: []versionedClient{{version: gosnmp.Version2c, client: client}},
	}

	vars := s.Walk(context.Background(), root)
	if len(vars) != 1 || vars[0].Value != "Tray 1" {
		t.Fatalf("Walk = %+v, want the row received before the error", vars)
	}
	if !s.Responded() {
		t.Error("Responded() = false after a walk that returned rows")
	}
}
