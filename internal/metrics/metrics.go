package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsProcessed *prometheus.CounterVec
	CacheHits        prometheus.Counter
	APIErrors        prometheus.Counter
	RequestSeconds   *prometheus.HistogramVec
	CacheEntries     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RecordsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_records_processed_total",
			Help: "Total number of processed address records.",
		}, []string{"status"}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_cache_hits_total",
			Help: "Total number of lookups served from the cache.",
		}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		CacheEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geocoding_cache_entries",
			Help: "Current number of entries in the result cache.",
		}),
	}
}
