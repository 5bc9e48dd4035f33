package main

import (
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func TestGetServiceConfigPassesConfigPath(t *testing.T) {
	cfg := getServiceConfig("config.toml")
	if cfg.Name != "PrintMonitorAgent" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if len(cfg.Arguments) != 4 || cfg.Arguments[0] != "--config" || !filepath.IsAbs(cfg.Arguments[1]) {
		t.Errorf("Arguments = %v", cfg.Arguments)
	}
	if cfg.Arguments[2] != "--service" || cfg.Arguments[3] != "run" {
		t.Errorf("Arguments = %v", cfg.Arguments)
	}

	if got := getServiceConfig("").Arguments; !slices.Equal(got, []string{"--service", "run"}) {
		t.Errorf("Arguments without config = %v", got)
	}
}

func TestServiceDirectoriesIncludeLogDir(t *testing.T) {
	dirs := serviceDirectories()
	if len(dirs) == 0 || dirs[0] != serviceBaseDir() {
		t.Fatalf("dirs = %v", dirs)
	}
	logDir := filepath.Dir(getServiceLogPath())
	if !slices.Contains(dirs, logDir) {
		t.Errorf("log dir %s not created by install (dirs = %v)", logDir, dirs)
	}
	if runtime.GOOS != "windows" && !filepath.IsAbs(getServiceLogPath()) {
		t.Errorf("log path not absolute: %s", getServiceLogPath())
	}
}

func TestProgramStopWithoutStart(t *testing.T) {
	p := &program{}
	if err := p.Stop(nil); err != nil {
		t.Errorf("Stop = %v", err)
	}
}
