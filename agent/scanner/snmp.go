package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Config holds SNMP transport parameters for one poll.
type Config struct {
	Community string
	Port      uint16
	Retries   int

	// GetTimeout bounds one scalar query attempt; WalkTimeout bounds one whole
	// subtree walk attempt. Each protocol version gets its own budget.
	GetTimeout  time.Duration
	WalkTimeout time.Duration

	// Versions is the attempt order, newest dialect first.
	Versions []gosnmp.SnmpVersion

	// MaxWalkEntries stops runaway walks on misbehaving agents.
	MaxWalkEntries int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Community:      "public",
		Port:           161,
		Retries:        0,
		GetTimeout:     1500 * time.Millisecond,
		WalkTimeout:    2500 * time.Millisecond,
		Versions:       []gosnmp.SnmpVersion{gosnmp.Version2c, gosnmp.Version1},
		MaxWalkEntries: 10000,
	}
}

// ParseVersion converts "1", "2c", "v2c" and similar to a gosnmp version.
// SNMPv3 is not supported: access uses community strings only.
func ParseVersion(s string) (gosnmp.SnmpVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "v1":
		return gosnmp.Version1, nil
	case "2", "2c", "v2", "v2c":
		return gosnmp.Version2c, nil
	default:
		return 0, fmt.Errorf("unsupported SNMP version: %q", s)
	}
}

// SNMPClient abstracts gosnmp so tests can script device responses.
type SNMPClient interface {
	Get(ctx context.Context, oids []string) (*gosnmp.SnmpPacket, error)
	Walk(ctx context.Context, rootOid string, walkFn gosnmp.WalkFunc) error
	Close() error
}

// ClientFactory opens a transport to target speaking the given version.
type ClientFactory func(cfg Config, target string, version gosnmp.SnmpVersion) (SNMPClient, error)

// NewSNMPClient is the production factory. Tests inject their own through
// WithClientFactory rather than replacing this variable.
var NewSNMPClient ClientFactory = newSNMPClientImpl

func newSNMPClientImpl(cfg Config, target string, version gosnmp.SnmpVersion) (SNMPClient, error) {
	if target == "" {
		return nil, fmt.Errorf("target IP required")
	}
	port := cfg.Port
	if port == 0 {
		port = 161
	}
	timeout := cfg.GetTimeout
	if cfg.WalkTimeout > timeout {
		timeout = cfg.WalkTimeout
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	conn := &gosnmp.GoSNMP{
		Target:    target,
		Port:      port,
		Community: cfg.Community,
		Version:   version,
		Timeout:   timeout,
		Retries:   cfg.Retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &gosnmpClient{conn: conn, timeout: timeout}, nil
}

// gosnmpClient wraps gosnmp.GoSNMP. GoSNMP carries its context and timeout as
// struct fields, so calls are serialized and both are set per call.
type gosnmpClient struct {
	mu      sync.Mutex
	conn    *gosnmp.GoSNMP
	timeout time.Duration
}

func (c *gosnmpClient) prepare(ctx context.Context) {
	c.conn.Context = ctx
	c.conn.Timeout = c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < c.timeout {
			c.conn.Timeout = remaining
		}
	}
}

func (c *gosnmpClient) Get(ctx context.Context, oids []string) (*gosnmp.SnmpPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepare(ctx)
	return c.conn.Get(oids)
}

func (c *gosnmpClient) Walk(ctx context.Context, rootOid string, walkFn gosnmp.WalkFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepare(ctx)
	return c.conn.Walk(rootOid, walkFn)
}

func (c *gosnmpClient) Close() error {
	if c.conn != nil && c.conn.Conn != nil {
		return c.conn.Conn.Close()
	}
	return nil
}

// VersionName renders a version for logs and metric labels.
func VersionName(v gosnmp.SnmpVersion) string {
	switch v {
	case gosnmp.Version1:
		return "v1"
	case gosnmp.Version2c:
		return "v2c"
	case gosnmp.Version3:
		return "v3"
	default:
		return "unknown"
	}
}
