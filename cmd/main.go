package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Houeta/batch-geocoder/internal/cache"
	"github.com/Houeta/batch-geocoder/internal/config"
	"github.com/Houeta/batch-geocoder/internal/geocoding"
	"github.com/Houeta/batch-geocoder/internal/metrics"
	"github.com/Houeta/batch-geocoder/internal/records"
	"github.com/Houeta/batch-geocoder/internal/runner"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// An interrupted run still flushes the cache and writes the partial output.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: batch-geocoder <addresses.json>")
		os.Exit(2)
	}
	inputPath := os.Args[1]

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Unreadable input aborts before any processing.
	addresses, err := records.Load(inputPath)
	if err != nil {
		log.Fatalf("Failed to load addresses: %v", err)
	}
	logger.InfoContext(ctx, "Loaded addresses", "count", len(addresses), "path", inputPath)

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize cache store: %v", err)
	}
	defer closeStore()

	// Create geocoding provider using factory pattern based on configuration
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		RateLimit: cfg.ProviderRateLimit,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.ProviderType)

	// Start the monitoring server in a goroutine; it lives for the duration of the run.
	go startMonitoringServer(ctx, logger, reg, cfg.HealthPort)

	batch := runner.NewRunner(logger, store, provider, cfg.ProviderType, appMetrics, clockwork.NewRealClock(),
		runner.Options{
			RequestDelay: cfg.RequestDelay,
			BatchSize:    cfg.BatchSize,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})

	results, runErr := batch.Run(ctx, addresses)
	if runErr != nil {
		logger.WarnContext(ctx, "Run ended early", "error", runErr, "processed", len(results))
	}

	// Best-effort flush covers the interrupted path; a completed run has
	// already flushed and this is a no-op.
	finishCtx := context.WithoutCancel(ctx)
	if err = store.Flush(finishCtx); err != nil {
		logger.ErrorContext(finishCtx, "Failed to flush cache", "error", err)
	}

	// The cache is already persisted at this point, so a failed output write
	// loses no geocoding work.
	if err = records.Write(cfg.OutputPath, results); err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}

	successes := 0
	for _, result := range results {
		if result.Geocoding.Error == nil {
			successes++
		}
	}
	logger.InfoContext(finishCtx, "Results saved",
		"path", cfg.OutputPath, "records", len(results), "successes", successes)
}

// newStore builds the configured cache backend and returns it together with
// a close function for its underlying resources.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	if cfg.CacheBackend == config.CacheBackendPostgres {
		dtb, err := cache.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		store, err := cache.NewPostgresStore(ctx, dtb, logger)
		if err != nil {
			dtb.Close()
			return nil, nil, err
		}
		return store, dtb.Close, nil
	}

	return cache.NewFileStore(cfg.CachePath, logger), func() {}, nil
}

// startMonitoringServer starts an HTTP server that provides health check and
// metrics endpoints. It listens on the specified port and logs the server's
// status and any errors encountered.
func startMonitoringServer(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		if _, err := writer.Write([]byte("OK")); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envLocal:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelError,
			}),
		)

		logger.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return logger
}
