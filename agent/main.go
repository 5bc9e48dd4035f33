package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"printmonitor/agent/api"
	"printmonitor/agent/metrics"
	"printmonitor/agent/poller"
	"printmonitor/agent/storage"
	"printmonitor/common/config"
	"printmonitor/common/logger"
	"printmonitor/common/ws"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"     // Semantic version (e.g., "1.0.0")
	BuildTime = "unknown" // Build timestamp
	GitCommit = "unknown" // Git commit hash
)

func main() {
	configPath := flag.String("config", "config.toml", "Configuration file path")
	generateConfig := flag.Bool("generate-config", false, "Generate default config file and exit")
	serviceCmd := flag.String("service", "", "Service control: install, uninstall, start, stop, restart, status, run")
	pollAddress := flag.String("poll", "", "Poll a single address, print its snapshot as JSON and exit")
	once := flag.Bool("once", false, "Poll every registered device once, store the results and exit")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("PrintMonitor Agent %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	}

	if *generateConfig {
		if err := WriteDefaultAgentConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at %s\n", *configPath)
		return
	}

	if *serviceCmd != "" {
		handleServiceCommand(*serviceCmd, *configPath)
		return
	}

	if !service.Interactive() {
		runAsService(*configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *pollAddress != "":
		err = pollOnce(ctx, *configPath, *pollAddress)
	case *once:
		err = sweepOnce(ctx, *configPath)
	default:
		err = runAgent(ctx, *configPath, false)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger and installs it as logger.Global.
func setupLogger(cfg config.LoggingConfig, isService bool) *logger.Logger {
	logDir := cfg.Dir
	if logDir == "" && isService {
		logDir = filepath.Dir(getServiceLogPath())
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot create log directory %s: %v\n", logDir, err)
			logDir = ""
		}
	}

	log := logger.New(logger.LevelFromString(cfg.Level), logDir, 1000)
	log.SetRotationPolicy(logger.RotationPolicy{Enabled: true, MaxSizeMB: 10, MaxFiles: 5})
	logger.Global = log
	storage.SetLogger(log)
	return log
}

// components is everything a running agent owns.
type components struct {
	cfg       *AgentConfig
	log       *logger.Logger
	store     *storage.BaseStore
	registry  *prometheus.Registry
	metrics   *metrics.PollMetrics
	poller    *poller.Poller
	hub       *ws.Hub
	scheduler *poller.Scheduler
}

func (c *components) Close() {
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.Warn("Closing database failed", "error", err)
		}
	}
	_ = c.log.Close()
}

// buildComponents loads configuration and wires store, poller, metrics,
// hub and scheduler.
func buildComponents(ctx context.Context, configFlag string, isService bool) (*components, error) {
	cfg, path, err := resolveConfig(configFlag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := setupLogger(cfg.Logging, isService)
	if path != "" {
		log.Info("Loaded configuration", "path", path)
	} else {
		log.Info("No config file found, using defaults")
	}

	dbCfg, err := databaseConfig(cfg.Database, isService)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	store, err := storage.Open(ctx, dbCfg)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Info("Database ready", "driver", store.Dialect().Name())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPollMetrics(reg)

	p := poller.New(cfg.PollerConfig(), poller.WithObserver(m), poller.WithLogger(log))
	hub := ws.NewHub()
	sched := poller.NewScheduler(p, store, store, poller.Publishers(hub, m), cfg.PollInterval())

	return &components{
		cfg:       cfg,
		log:       log,
		store:     store,
		registry:  reg,
		metrics:   m,
		poller:    p,
		hub:       hub,
		scheduler: sched,
	}, nil
}

// runAgent serves the HTTP API and polls on schedule until ctx ends.
func runAgent(ctx context.Context, configFlag string, isService bool) error {
	c, err := buildComponents(ctx, configFlag, isService)
	if err != nil {
		return err
	}
	defer c.Close()

	c.log.Info("PrintMonitor Agent starting",
		"version", Version,
		"git_commit", GitCommit,
		"listen", c.cfg.Web.Listen,
		"interval", c.cfg.PollInterval())

	opts := api.Options{
		Store:     c.store,
		Scheduler: c.scheduler,
		Prober:    c.poller,
		Feed:      c.hub,
		Forgetter: c.metrics,
		Logger:    c.log,
		Version:   Version,
	}
	if c.cfg.Web.EnableMetrics {
		opts.Metrics = promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
	}

	srv := &http.Server{
		Addr:              c.cfg.Web.Listen,
		Handler:           api.NewAPI(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	c.scheduler.Start(ctx)
	retention := storage.NewRetentionWorker(c.store, c.cfg.HistoryRetention(), time.Hour)
	retention.Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		c.log.Info("Shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
			c.log.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	c.scheduler.Stop()
	retention.Stop()
	c.log.Info("PrintMonitor Agent stopped")
	return runErr
}

// pollOnce polls address without touching the database and prints the
// snapshot.
func pollOnce(ctx context.Context, configFlag, address string) error {
	cfg, _, err := resolveConfig(configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := setupLogger(cfg.Logging, false)
	log.SetConsole(os.Stderr)
	defer log.Close()

	snap := poller.New(cfg.PollerConfig(), poller.WithLogger(log)).Poll(ctx, address, nil)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// sweepOnce polls every registered device once and stores the results.
func sweepOnce(ctx context.Context, configFlag string) error {
	c, err := buildComponents(ctx, configFlag, false)
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.scheduler.PollAllDevices(ctx)
	for _, r := range results {
		fmt.Printf("%-36s  %-21s  %s\n", r.Target.ID, r.Target.Address, r.Snapshot.OperationalStatus)
	}
	return err
}
