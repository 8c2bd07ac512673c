package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/batch-geocoder/internal/cache"
	"github.com/Houeta/batch-geocoder/internal/geocoding"
	"github.com/Houeta/batch-geocoder/internal/metrics"
	"github.com/Houeta/batch-geocoder/internal/models"
	"github.com/Houeta/batch-geocoder/internal/normalize"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// progressEvery controls how often a progress line is logged.
const progressEvery = 10

// Options holds the tunables of a batch run.
type Options struct {
	RequestDelay time.Duration // Minimum spacing between network-call starts.
	BatchSize    int           // Newly cached successes between cache flushes.
	MaxRetries   int           // Attempts per address for transient errors.
	RetryDelay   time.Duration // Base delay between retry attempts, escalates per attempt.
}

// Runner drives the sequential geocoding loop: normalize, consult the cache,
// call the provider on a miss, record the outcome, and periodically flush the
// cache. The provider is never called concurrently; the limiter guarantees
// consecutive network-call starts are at least RequestDelay apart, which is a
// usage-policy requirement of the backend, not a tunable.
type Runner struct {
	log          *slog.Logger       // Logger for run narration
	store        cache.Store        // Persistent result cache
	provider     geocoding.Provider // Geocoding provider for external services
	providerName string             // Name of the provider for metrics labeling
	metrics      *metrics.Metrics   // Metrics for tracking run behavior
	clock        clockwork.Clock    // Time source for result timestamps and retry backoff
	limiter      *rate.Limiter      // Paces network-call starts
	opts         Options

	apiCalls int // Network calls issued during the current run
}

// NewRunner creates a batch runner. Zero option values are replaced with the
// defaults (1.1s delay, batch of 20, 3 attempts, 2s retry delay).
func NewRunner(
	log *slog.Logger,
	store cache.Store,
	provider geocoding.Provider,
	providerName string,
	appMetrics *metrics.Metrics,
	clock clockwork.Clock,
	opts Options,
) *Runner {
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 1100 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}

	return &Runner{
		log:          log,
		store:        store,
		provider:     provider,
		providerName: providerName,
		metrics:      appMetrics,
		clock:        clock,
		limiter:      rate.NewLimiter(rate.Every(opts.RequestDelay), 1),
		opts:         opts,
	}
}

// Run processes records strictly in input order and returns one annotated
// output record per input record. A single record's failure never aborts the
// run. On context cancellation the records processed so far are returned
// together with the context error, so the caller can still flush the cache
// and write a partial output.
func (r *Runner) Run(ctx context.Context, records []models.AddressRecord) ([]models.OutputRecord, error) {
	total := len(records)
	results := make([]models.OutputRecord, 0, total)
	dirty := 0
	cacheHits := 0
	start := r.clock.Now()

	r.log.InfoContext(ctx, "Processing addresses", "total", total)

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			r.log.WarnContext(ctx, "Run interrupted", "processed", len(results), "total", total)
			return results, fmt.Errorf("run interrupted: %w", err)
		}

		result, newlyCached := r.processRecord(ctx, record)
		if result.Cached {
			cacheHits++
		}
		if newlyCached {
			dirty++
			if dirty >= r.opts.BatchSize {
				if err := r.store.Flush(ctx); err != nil {
					r.log.ErrorContext(ctx, "Failed to flush cache", "error", err)
				} else {
					dirty = 0
				}
				r.updateCacheGauge(ctx)
			}
		}

		results = append(results, models.OutputRecord{AddressRecord: record, Geocoding: result})

		if (i+1)%progressEvery == 0 || i+1 == total {
			r.log.InfoContext(ctx, "Progress",
				"processed", i+1, "total", total, "cache_hits", cacheHits, "api_calls", r.apiCalls)
		}
	}

	// Covers any partial batch.
	if err := r.store.Flush(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to flush cache after run", "error", err)
	}
	r.updateCacheGauge(ctx)

	r.log.InfoContext(ctx, "Run finished",
		"total", total,
		"cache_hits", cacheHits,
		"api_calls", r.apiCalls,
		"elapsed", r.clock.Since(start).String(),
	)

	return results, nil
}

// processRecord produces the geocoding result for a single record and reports
// whether a new entry was added to the cache.
func (r *Runner) processRecord(ctx context.Context, record models.AddressRecord) (models.GeocodeResult, bool) {
	query, err := normalize.Query(record)
	if err != nil {
		r.log.WarnContext(ctx, "Record has no usable address fields", "id", record.ID)
		r.metrics.RecordsProcessed.WithLabelValues("failure").Inc()
		return models.FailureResult("insufficient address data", r.now()), false
	}

	entry, err := r.store.Lookup(ctx, query)
	if err != nil {
		// A broken lookup degrades to a cache miss.
		r.log.WarnContext(ctx, "Cache lookup failed, treating as miss", "id", record.ID, "error", err)
	}
	if entry != nil {
		r.log.DebugContext(ctx, "Cache hit", "id", record.ID, "query", query)
		r.metrics.CacheHits.Inc()
		r.metrics.RecordsProcessed.WithLabelValues("cached").Inc()
		return models.CachedResult(*entry, r.now()), false
	}

	loc, err := r.geocode(ctx, query)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to geocode record", "id", record.ID, "error", err)
		r.metrics.RecordsProcessed.WithLabelValues("failure").Inc()
		return models.FailureResult(err.Error(), r.now()), false
	}

	result := models.SuccessResult(*loc, r.now())
	r.metrics.RecordsProcessed.WithLabelValues("success").Inc()

	if err = r.store.Insert(ctx, query, result.Entry()); err != nil {
		// The result is still reported; only its reuse on the next run is lost.
		r.log.ErrorContext(ctx, "Failed to cache result", "id", record.ID, "error", err)
		return result, false
	}

	return result, true
}

// geocode issues the rate-limited provider call, retrying transient errors
// with an escalating delay. A no-match answer is terminal for this run.
func (r *Runner) geocode(ctx context.Context, query string) (*models.Location, error) {
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		callStart := time.Now()
		loc, err := r.provider.Geocode(ctx, query)
		r.apiCalls++
		r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(callStart).Seconds())

		if err == nil {
			return loc, nil
		}

		r.metrics.APIErrors.Inc()
		if errors.Is(err, geocoding.ErrNoMatch) {
			return nil, err
		}

		lastErr = err
		if attempt < r.opts.MaxRetries {
			r.log.WarnContext(ctx, "Geocoding attempt failed, retrying",
				"attempt", attempt, "error", err)
			r.clock.Sleep(r.opts.RetryDelay * time.Duration(attempt))
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", r.opts.MaxRetries, lastErr)
}

func (r *Runner) now() string {
	return r.clock.Now().UTC().Format(time.RFC3339)
}

func (r *Runner) updateCacheGauge(ctx context.Context) {
	if length, err := r.store.Len(ctx); err == nil {
		r.metrics.CacheEntries.Set(float64(length))
	}
}
