package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vigil/internal/config"
	"vigil/internal/constants"
	"vigil/internal/middleware"
	"vigil/internal/report"
	"vigil/internal/retry"
	"vigil/internal/store"
	syncpkg "vigil/internal/sync"
	"vigil/internal/tracing"
	"vigil/pkg/incident"
	"vigil/pkg/reward"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Vigil agent %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting vigil agent")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configureLogLevel(logger, cfg.LogLevel)

	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the local store with exponential backoff; a device coming
	// back from sleep can race its own filesystem.
	var db *store.Store
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var openErr error
		db, openErr = store.New(cfg.Store.Path)
		if openErr != nil {
			logger.Warnf("Failed to open local store: %v", openErr)
		}
		return openErr
	})
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close local store: %v", err)
		}
	}()

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.IncidentService.TimeoutSec) * time.Second,
	}
	tokens := incident.StaticToken(os.Getenv("VIGIL_AUTH_TOKEN"))
	api := incident.NewClientWithLogger(cfg.IncidentService.BaseURL, tokens, httpClient, logger)

	var rewards reward.Client
	if cfg.Reward.Enabled && cfg.Reward.BaseURL != "" {
		rewards = reward.NewClient(cfg.Reward.BaseURL, tokens.Token(), httpClient, logger)
	}

	checker := syncpkg.NewHTTPChecker(cfg.Sync.ProbeURL, nil, logger)
	state := syncpkg.NewConnectivityState()
	engine := syncpkg.NewEngine(db, api, tokens, rewards, checker, logger)
	refresher := syncpkg.NewRefresher(db, api, cfg.Agent.Latitude, cfg.Agent.Longitude, cfg.Sync.NearbyRadiusKm, logger)
	reporter := report.NewReporter(db, api, rewards, checker, logger)

	monitor := syncpkg.NewMonitor(
		checker, state, db, engine, refresher,
		time.Duration(cfg.Sync.TickIntervalSec)*time.Second,
		time.Duration(cfg.Sync.MaxAgeMinutes)*time.Minute,
		logger,
	)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start connectivity monitor: %w", err)
	}
	defer monitor.Stop()

	srv := newServer(cfg, reporter, refresher, engine, monitor, state, db, api, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Agent.Port),
		Handler:      middleware.ObservabilityMiddleware(logger)(srv.routes()),
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	errCh := make(chan error, constants.DefaultServerErrorChannelSize)
	go func() {
		logger.WithField("port", cfg.Agent.Port).Info("Agent API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("agent API server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down vigil agent")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Agent API shutdown error: %v", err)
	}
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	if configured != "" {
		if parsed, err := logrus.ParseLevel(configured); err == nil {
			logger.SetLevel(parsed)
			return
		}
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
	}
	logger.SetLevel(logrus.InfoLevel)
}
