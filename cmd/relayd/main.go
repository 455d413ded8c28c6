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
	"vigil/internal/models"
	"vigil/internal/relay"
	"vigil/internal/tracing"

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
		fmt.Printf("Vigil relay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
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
	}).Info("Starting vigil relay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Relay.JWTSecret == "" {
		return models.ConfigError{Message: "missing relay JWT secret (set VIGIL_RELAY_JWT_SECRET)"}
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

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.IncidentService.TimeoutSec) * time.Second,
	}
	persister := relay.NewRESTPersisterFactory(cfg.IncidentService.BaseURL, httpClient, logger)
	hub := relay.NewHub(
		[]byte(cfg.Relay.JWTSecret),
		persister,
		time.Duration(cfg.Relay.HeartbeatSec)*time.Second,
		logger,
	)

	srv := newServer(hub, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Relay.Port),
		Handler: middleware.ObservabilityMiddleware(logger)(srv.routes()),
		// No write timeout: WebSocket connections outlive any sane
		// HTTP deadline.
		ReadHeaderTimeout: constants.DefaultServerReadTimeoutSec * time.Second,
		IdleTimeout:       constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	errCh := make(chan error, constants.DefaultServerErrorChannelSize)
	go func() {
		logger.WithField("port", cfg.Relay.Port).Info("Chat relay listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down vigil relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Relay shutdown error: %v", err)
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
