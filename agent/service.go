package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface
type program struct {
	configPath string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	svcLogger  service.Logger
}

func (p *program) Start(s service.Service) error {
	p.svcLogger, _ = s.Logger(nil)
	if p.svcLogger != nil {
		p.svcLogger.Info("PrintMonitor Agent service starting")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.done)

	if err := runAgent(p.ctx, p.configPath, true); err != nil && p.svcLogger != nil {
		p.svcLogger.Error(fmt.Sprintf("PrintMonitor Agent exited: %v", err))
	}
}

func (p *program) Stop(s service.Service) error {
	if p.svcLogger != nil {
		p.svcLogger.Info("PrintMonitor Agent service stop requested")
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.done == nil {
		return nil
	}

	select {
	case <-p.done:
		if p.svcLogger != nil {
			p.svcLogger.Info("PrintMonitor Agent service stopped gracefully")
		}
	case <-time.After(30 * time.Second):
		if p.svcLogger != nil {
			p.svcLogger.Warning("PrintMonitor Agent service stopped with timeout")
		}
	}
	return nil
}

// serviceBaseDir is the per-platform working directory of the service.
func serviceBaseDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "PrintMonitor")
	case "darwin":
		return "/Library/Application Support/PrintMonitor"
	default:
		return "/var/lib/printmonitor"
	}
}

// getServiceConfig returns the service configuration for the current platform
func getServiceConfig(configPath string) *service.Config {
	args := []string{"--service", "run"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append([]string{"--config", configPath}, args...)
	}

	return &service.Config{
		Name:             "PrintMonitorAgent",
		DisplayName:      "PrintMonitor Agent",
		Description:      "Polls network printers over SNMP and serves their status.",
		WorkingDirectory: serviceBaseDir(),
		Arguments:        args,
		Option: service.KeyValue{
			// Windows service options
			"StartType":              "automatic",
			"DelayedAutoStart":       true,
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
			"OnFailureResetPeriod":   30,

			// Linux systemd options
			"Restart":           "on-failure",
			"RestartSec":        5,
			"SuccessExitStatus": "0 SIGTERM",
			"KillMode":          "mixed",

			// macOS launchd options
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

// serviceDirectories lists the directories a service install needs.
func serviceDirectories() []string {
	base := serviceBaseDir()
	switch runtime.GOOS {
	case "windows":
		return []string{base, filepath.Join(base, "logs")}
	case "darwin":
		return []string{base, "/var/log/printmonitor"}
	default:
		return []string{base, "/var/log/printmonitor", "/etc/printmonitor"}
	}
}

// setupServiceDirectories creates necessary directories for service operation
func setupServiceDirectories() error {
	for _, dir := range serviceDirectories() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// getServiceLogPath returns the log file path for service mode
func getServiceLogPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(serviceBaseDir(), "logs", "printmonitor.log")
	}
	return "/var/log/printmonitor/printmonitor.log"
}

// handleServiceCommand processes service install/uninstall/start/stop commands
func handleServiceCommand(cmd, configPath string) {
	s, err := service.New(&program{configPath: configPath}, getServiceConfig(configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		if status, _ := s.Status(); status != service.StatusUnknown {
			fmt.Println("Service already exists, removing first...")
			if status == service.StatusRunning {
				_ = s.Stop()
				time.Sleep(2 * time.Second)
			}
			if err := s.Uninstall(); err != nil && !strings.Contains(err.Error(), "marked for deletion") {
				exitf("Failed to remove existing service: %v", err)
			}
		}
		if err := setupServiceDirectories(); err != nil {
			exitf("Failed to setup service directories: %v", err)
		}
		if err := s.Install(); err != nil && !strings.Contains(err.Error(), "already exists") {
			exitf("Failed to install service: %v", err)
		}
		fmt.Println("Service installed. Use '--service start' to start it.")

	case "uninstall":
		if err := s.Uninstall(); err != nil {
			exitf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled")

	case "start":
		if err := s.Start(); err != nil {
			exitf("Failed to start service: %v", err)
		}
		fmt.Println("Service started")

	case "stop":
		if err := s.Stop(); err != nil {
			exitf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped")

	case "restart":
		if err := s.Restart(); err != nil {
			exitf("Failed to restart service: %v", err)
		}
		fmt.Println("Service restarted")

	case "status":
		status, err := s.Status()
		fmt.Printf("Service %s: %s", getServiceConfig(configPath).Name, serviceStatusText(status))
		if err != nil {
			fmt.Printf(" (%v)", err)
		}
		fmt.Println()

	case "run":
		if err := s.Run(); err != nil {
			exitf("Service run failed: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown service command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Valid commands: install, uninstall, start, stop, restart, status, run")
		os.Exit(1)
	}
}

func serviceStatusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "not installed"
	}
}

// runAsService starts the agent under service manager control
func runAsService(configPath string) {
	s, err := service.New(&program{configPath: configPath}, getServiceConfig(configPath))
	if err != nil {
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		os.Exit(1)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
