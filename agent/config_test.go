package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"printmonitor/agent/scanner/vendor"
	"printmonitor/common/snmp/oids"

	"github.com/gosnmp/gosnmp"
)

func TestDefaultAgentConfigIsValid(t *testing.T) {
	cfg := DefaultAgentConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	pc := cfg.PollerConfig()
	if pc.SNMP.GetTimeout != 1500*time.Millisecond || pc.SNMP.WalkTimeout != 2500*time.Millisecond {
		t.Errorf("timeouts = %v / %v", pc.SNMP.GetTimeout, pc.SNMP.WalkTimeout)
	}
	if len(pc.SNMP.Versions) != 2 || pc.SNMP.Versions[0] != gosnmp.Version2c || pc.SNMP.Versions[1] != gosnmp.Version1 {
		t.Errorf("versions = %v", pc.SNMP.Versions)
	}
	if pc.PageCountMode != vendor.PageCountSum {
		t.Errorf("page count mode = %q", pc.PageCountMode)
	}
	if pc.OIDs.Model != oids.SysDescr {
		t.Errorf("model OID = %q", pc.OIDs.Model)
	}
}

func TestLoadAgentConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[snmp]
community = "private"
get_timeout_ms = 800
versions = ["1"]

[snmp.oids]
model = "1.3.6.1.2.1.25.3.2.1.3.1"

[poll]
interval_seconds = 60
page_count_mode = "first"

[web]
listen = "127.0.0.1:9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.SNMP.Community != "private" || cfg.Web.Listen != "127.0.0.1:9090" {
		t.Errorf("cfg = %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.SNMP.WalkTimeoutMs != 2500 || cfg.Poll.Concurrency == 0 {
		t.Errorf("defaults lost: walk=%d concurrency=%d", cfg.SNMP.WalkTimeoutMs, cfg.Poll.Concurrency)
	}

	pc := cfg.PollerConfig()
	if len(pc.SNMP.Versions) != 1 || pc.SNMP.Versions[0] != gosnmp.Version1 {
		t.Errorf("versions = %v", pc.SNMP.Versions)
	}
	if pc.OIDs.Model != "1.3.6.1.2.1.25.3.2.1.3.1" || pc.OIDs.Serial != oids.PrtGeneralSerialNumber {
		t.Errorf("oids = %+v", pc.OIDs)
	}
	if pc.PageCountMode != vendor.PageCountFirst {
		t.Errorf("page count mode = %q", pc.PageCountMode)
	}
	if cfg.PollInterval() != time.Minute {
		t.Errorf("interval = %v", cfg.PollInterval())
	}
}

func TestLoadAgentConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "[snmp]\ncomunity = \"x\"\n", "unknown config keys"},
		{"bad version", "[snmp]\nversions = [\"3\"]\n", "snmp.versions"},
		{"bad mode", "[poll]\npage_count_mode = \"max\"\n", "page_count_mode"},
		{"bad oid", "[snmp.oids]\nserial = \"not-an-oid\"\n", "snmp.oids"},
		{"short interval", "[poll]\ninterval_seconds = 1\n", "interval_seconds"},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadAgentConfig(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("case %d: err = %v, want it to mention %q", i, err, tc.want)
			}
		})
	}

	if _, err := LoadAgentConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SNMP_COMMUNITY", "envcomm")
	t.Setenv("SNMP_GET_TIMEOUT_MS", "900")
	t.Setenv("POLL_INTERVAL_SECONDS", "45")
	t.Setenv("HTTP_LISTEN", ":9999")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/pm")
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteDefaultAgentConfig(path); err != nil {
		t.Fatalf("WriteDefaultAgentConfig: %v", err)
	}
	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.SNMP.Community != "envcomm" || cfg.SNMP.GetTimeoutMs != 900 {
		t.Errorf("snmp = %+v", cfg.SNMP)
	}
	if cfg.Poll.IntervalSeconds != 45 || cfg.Web.Listen != ":9999" {
		t.Errorf("poll/web = %+v / %+v", cfg.Poll, cfg.Web)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/pm" || cfg.Logging.Level != "debug" {
		t.Errorf("db/logging = %+v / %+v", cfg.Database, cfg.Logging)
	}
}

func TestHistoryRetention(t *testing.T) {
	cfg := DefaultAgentConfig()
	if got := cfg.HistoryRetention(); got != 30*24*time.Hour {
		t.Errorf("retention = %v", got)
	}
	cfg.Poll.HistoryRetentionDays = 0
	if got := cfg.HistoryRetention(); got != 0 {
		t.Errorf("disabled retention = %v", got)
	}
}

func TestDatabaseConfigDefaultsPath(t *testing.T) {
	cfg := DefaultAgentConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "x.db")
	got, err := databaseConfig(cfg, false)
	if err != nil || got.Path != cfg.Path {
		t.Errorf("explicit path changed: %+v, %v", got, err)
	}

	pg := cfg
	pg.Driver = "postgres"
	pg.Path = ""
	if got, _ := databaseConfig(pg, false); got.Path != "" {
		t.Errorf("postgres config gained a path: %q", got.Path)
	}
}
