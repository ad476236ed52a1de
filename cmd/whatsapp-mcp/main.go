package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/config"
	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/database"
	apperrors "github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/service"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"
	"github.com/ab2005/whatsapp-mcp/pkg/bridge"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	version = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("whatsapp-mcp %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	appLog := apperrors.NewLogger()
	logger := appLog.Logger

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting whatsapp-mcp")

	cfg, err := config.Load()
	if err != nil {
		appLog.LogError(err, "Invalid configuration")
		return err
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else {
		logger.SetLevel(cfg.ParsedLogLevel())
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    "whatsapp-mcp",
		ServiceVersion: Version,
		Environment:    getEnvOrDefault("ENVIRONMENT", "development"),
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		Enabled:        cfg.TracingEnabled,
		UseStdout:      cfg.OTLPEndpoint == "",
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the message store. It is written by the external bridge; this
	// service only reads it, so a missing schema is a hard startup error.
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		appLog.LogError(err, "Failed to open message store")
		return err
	}
	defer db.Close()

	bridgeClient := bridge.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger,
		bridge.WithSendPolicy(cfg.MaxMessageLength, cfg.MaxFileSize, cfg.AllowedFileTypes))
	defer bridgeClient.Close()

	msgService := service.NewMessageService(db, logger)

	server := NewServer(cfg, msgService, bridgeClient, logger, *verbose || cfg.VerbosePrivacy)

	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
