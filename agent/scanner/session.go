package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"printmonitor/common/logger"
	"printmonitor/common/snmp/oids"

	"github.com/gosnmp/gosnmp"
)

// ErrUnreachable marks connection-level failures: the address cannot be
// resolved, no transport could be opened, or the device never answered.
var ErrUnreachable = errors.New("device unreachable")

var errWalkLimit = errors.New("walk limit reached")

// Recorder receives one call per protocol attempt. result is "ok", "empty",
// "error" or "timeout".
type Recorder interface {
	RecordAttempt(operation, version, result string, elapsed time.Duration)
}

// Option configures a Session.
type Option func(*Session)

// WithClientFactory replaces NewSNMPClient for this session.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Session) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithRecorder attaches a Recorder to every attempt made by the session.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

type versionedClient struct {
	version gosnmp.SnmpVersion
	client  SNMPClient
}

// Session is the transport state of a single poll. It is opened at the start
// of the poll and closed at the end; nothing survives across polls. A Session
// is not safe for concurrent use.
type Session struct {
	target    string
	cfg       Config
	factory   ClientFactory
	recorder  Recorder
	clients   []versionedClient
	responded bool
}

// Open resolves address and opens one client per configured version. It fails
// with ErrUnreachable when resolution fails or no client could be opened.
func Open(ctx context.Context, address string, cfg Config, opts ...Option) (*Session, error) {
	s := &Session{cfg: cfg, factory: NewSNMPClient}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.cfg.Versions) == 0 {
		s.cfg.Versions = DefaultConfig().Versions
	}

	target, port, err := resolveTarget(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	s.target = target
	if port != 0 {
		s.cfg.Port = port
	}

	var lastErr error
	for _, v := range s.cfg.Versions {
		c, err := s.factory(s.cfg, target, v)
		if err != nil {
			lastErr = err
			if logger.Global != nil {
				logger.Global.Debug("SNMP client open failed", "ip", target, "version", VersionName(v), "error", err)
			}
			continue
		}
		s.clients = append(s.clients, versionedClient{version: v, client: c})
	}
	if len(s.clients) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
	}
	return s, nil
}

// Target returns the resolved IP address.
func (s *Session) Target() string { return s.target }

// Responded reports whether any attempt so far received a response packet,
// even one that carried no usable data.
func (s *Session) Responded() bool { return s.responded }

// Close tears down every client opened by the session.
func (s *Session) Close() {
	for _, vc := range s.clients {
		_ = vc.client.Close()
	}
	s.clients = nil
}

// Get fetches one scalar. ok is false when no version produced a value.
func (s *Session) Get(ctx context.Context, oid string) (string, bool) {
	oid = oids.Normalize(oid)
	return withFallback(ctx, s, "get", s.cfg.GetTimeout, func(ctx context.Context, c SNMPClient) (string, bool, error) {
		pkt, err := c.Get(ctx, []string{oid})
		if err != nil {
			return "", false, err
		}
		if pkt == nil || pkt.Error != gosnmp.NoError || len(pkt.Variables) == 0 {
			return "", false, nil
		}
		v, ok := PDUString(pkt.Variables[0])
		return v, ok, nil
	})
}

// Walk returns every entry below root in traversal order. Entries whose value
// cannot be rendered are kept with an empty Value so parallel walks over the
// same table stay index-aligned. An empty result means no version produced data.
func (s *Session) Walk(ctx context.Context, root string) []Variable {
	root = oids.Normalize(root)
	vars, _ := withFallback(ctx, s, "walk", s.cfg.WalkTimeout, func(ctx context.Context, c SNMPClient) ([]Variable, bool, error) {
		var out []Variable
		err := c.Walk(ctx, root, func(pdu gosnmp.SnmpPDU) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !oids.InSubtree(pdu.Name, root) {
				return nil
			}
			v, _ := PDUString(pdu)
			out = append(out, Variable{OID: oids.Normalize(pdu.Name), Value: v})
			if s.cfg.MaxWalkEntries > 0 && len(out) >= s.cfg.MaxWalkEntries {
				return errWalkLimit
			}
			return nil
		})
		if err != nil && len(out) == 0 {
			return nil, false, err
		}
		if err != nil && logger.Global != nil {
			logger.Global.Debug("SNMP walk ended early, keeping partial result", "ip", s.target, "root", root, "entries", len(out), "error", err)
		}
		return out, len(out) > 0, nil
	})
	return vars
}

// withFallback runs op once per configured version, newest first, each under
// its own timeout budget, and returns the first result that carries data.
// Every query and walk goes through here.
func withFallback[T any](ctx context.Context, s *Session, operation string, budget time.Duration,
	op func(ctx context.Context, c SNMPClient) (T, bool, error)) (T, bool) {
	var zero T
	for i, vc := range s.clients {
		if ctx.Err() != nil {
			return zero, false
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if budget > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, budget)
		}
		start := time.Now()
		val, ok, err := op(attemptCtx, vc.client)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || isTimeout(err)
		cancel()

		if err == nil || ok {
			s.responded = true
		}
		s.record(operation, vc.version, attemptResult(ok, err, timedOut), time.Since(start))

		if ok {
			if i > 0 && logger.Global != nil {
				logger.Global.Debug("SNMP fallback succeeded", "ip", s.target, "operation", operation, "version", VersionName(vc.version))
			}
			return val, true
		}
		if logger.Global != nil {
			logger.Global.TraceTag("snmp", "SNMP attempt yielded no data", "ip", s.target, "operation", operation, "version", VersionName(vc.version), "error", err)
		}
	}
	return zero, false
}

func attemptResult(ok bool, err error, timedOut bool) string {
	switch {
	case ok:
		return "ok"
	case timedOut:
		return "timeout"
	case err != nil:
		return "error"
	default:
		return "empty"
	}
}

// isTimeout recognizes the ways a transport reports an expired request:
// context deadlines, net.Error timeouts and gosnmp's own "request timeout".
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "request timeout")
}

func (s *Session) record(operation string, version gosnmp.SnmpVersion, result string, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordAttempt(operation, VersionName(version), result, elapsed)
	}
}

// resolveTarget accepts "host" or "host:port" and returns an IP literal.
func resolveTarget(ctx context.Context, address string) (string, uint16, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.New("empty address")
	}

	host, port := address, uint16(0)
	if h, p, err := net.SplitHostPort(address); err == nil {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, uint16(n)
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), port, nil
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", 0, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", 0, fmt.Errorf("resolve %s: no addresses", host)
	}
	return addrs[0], port, nil
}
