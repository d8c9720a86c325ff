package main

import (
	"context"   // library for cancellation of background workers
	"log/slog"  // library for structured logging
	"os"        // library for os related operations
	"os/signal" // library for signal handling such as Ctrl+C and kill signals
	"syscall"   // library for system call constants
	"time"      // library for time formatting

	"github.com/dhruvsoni1802/browser-webdriver/internal/api"
	"github.com/dhruvsoni1802/browser-webdriver/internal/config"
	"github.com/dhruvsoni1802/browser-webdriver/internal/pool"
	"github.com/dhruvsoni1802/browser-webdriver/internal/session"
	"github.com/dhruvsoni1802/browser-webdriver/internal/storage"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// Function to initialize the logger
func setupLogger(production bool) *slog.Logger {
	var handler slog.Handler

	if production {

		// Initialize JSON handler for production environment
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {

		// Initialize Text handler for development environment with better formatting
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: false,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Format timestamp to be more readable
				if a.Key == slog.TimeKey {
					t := a.Value.Time()
					return slog.String("time", t.Format(time.DateTime))
				}
				return a
			},
		})
	}

	// Create a new logger with the initialized handler
	return slog.New(handler)
}

// Main entry point of the program
func main() {
	// Load configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup the logger
	logger := setupLogger(cfg.IsProduction())
	slog.SetDefault(logger)

	slog.Info("WebDriver gateway starting",
		"server_port", cfg.ServerPort,
		"webdriver_urls", cfg.WebDriverURLs,
		"driver_path", cfg.DriverPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invokerOpts := []webdriver.Option{
		webdriver.WithTimeout(cfg.RequestTimeout),
		webdriver.WithLogger(logger),
	}

	// Build the endpoint pool from remote URLs and local drivers
	endpointPool, err := pool.New(cfg.WebDriverURLs, invokerOpts...)
	if err != nil {
		slog.Error("failed to create endpoint pool", "error", err)
		os.Exit(1)
	}

	if cfg.DriverPath != "" {
		if err := endpointPool.StartDrivers(ctx, cfg.DriverPath, cfg.MaxDrivers); err != nil {
			slog.Error("failed to start drivers", "error", err)
			os.Exit(1)
		}
	}

	endpointPool.CheckHealth(ctx)
	endpointPool.StartHealthWorker(ctx, cfg.HealthInterval)
	loadBalancer := pool.NewLoadBalancer(endpointPool)

	// Redis persistence is optional
	var repo *storage.SessionRepository
	var redisClient *storage.RedisClient
	if cfg.RedisAddr != "" {
		redisClient, err = storage.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("Redis unavailable, sessions will not be persisted", "error", err)
		} else {
			repo = storage.NewSessionRepository(redisClient, cfg.SessionTTL)
			slog.Info("connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	manager := session.NewManager(loadBalancer, repo,
		session.WithInvokerOptions(invokerOpts...),
		session.WithLogger(logger))
	manager.StartCleanupWorker(time.Minute, cfg.SessionTimeout)

	server := api.NewServer(cfg.ServerPort, manager, loadBalancer, cfg.RequestTimeout+5*time.Second)

	// Start the HTTP server in the background
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Create a channel to receive shutdown signals
	quit := make(chan os.Signal, 1)

	// Notify the channel for SIGINT and SIGTERM signals
	// Ctrl+C is SIGINT, kill signal is SIGTERM
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Log the service is ready and awaiting shutdown signal
	slog.Info("Service ready", "status", "awaiting shutdown signal")

	// Wait for a shutdown signal or a server failure
	select {
	case sig := <-quit:
		slog.Info("shutdown initiated", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			slog.Error("server stopped", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shut down HTTP server", "error", err)
	}

	// Stop workers before tearing down the drivers they talk to
	cancel()
	if err := manager.Close(); err != nil {
		slog.Warn("failed to close session manager", "error", err)
	}
	if err := endpointPool.Shutdown(); err != nil {
		slog.Warn("failed to shut down endpoint pool", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close Redis", "error", err)
		}
	}

	// Log the shutdown complete
	slog.Info("shutdown complete")
}
