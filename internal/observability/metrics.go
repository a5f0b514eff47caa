// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	TransfersCompleted prometheus.Counter
	TransfersExempt    prometheus.Counter
	FeesCharged        prometheus.Counter
	MintsTotal         prometheus.Counter
	BurnsTotal         prometheus.Counter
	CallsRejected      *prometheus.CounterVec

	// Policy administration metrics
	WhitelistUpdates *prometheus.CounterVec
	RoleUpdates      *prometheus.CounterVec
	ThresholdUpdates prometheus.Counter

	// Event pipeline metrics
	EventsRecorded   prometheus.Counter
	EventSinkErrors  *prometheus.CounterVec
	StreamClients    prometheus.Gauge
	JournalSize      prometheus.Gauge
	LastEventEmitted prometheus.Gauge

	// Storage metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bridged_token_ledger"
	}

	return &Metrics{
		// Engine metrics
		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transfers_completed_total",
			Help:      "Total number of committed transfer calls",
		}),
		TransfersExempt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transfers_exempt_total",
			Help:      "Total number of transfers that took the fee-exempt path",
		}),
		FeesCharged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fees_charged_total",
			Help:      "Total number of transfers that paid a fee",
		}),
		MintsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mints_total",
			Help:      "Total number of committed mint calls",
		}),
		BurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "burns_total",
			Help:      "Total number of committed burn calls",
		}),
		CallsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "calls_rejected_total",
			Help:      "Total number of rejected calls by operation and error type",
		}, []string{"operation", "error_type"}),

		// Policy administration metrics
		WhitelistUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "whitelist_updates_total",
			Help:      "Total number of whitelist additions and removals",
		}, []string{"action"}),
		RoleUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "role_updates_total",
			Help:      "Total number of role grants and revocations",
		}, []string{"action"}),
		ThresholdUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "threshold_updates_total",
			Help:      "Total number of fee waiver threshold updates",
		}),

		// Event pipeline metrics
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "records_total",
			Help:      "Total number of event records emitted",
		}),
		EventSinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "sink_errors_total",
			Help:      "Total number of event sink failures by sink",
		}, []string{"sink"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "stream_clients",
			Help:      "Number of connected WebSocket stream clients",
		}),
		JournalSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "journal_size",
			Help:      "Number of records held in the in-memory journal",
		}),
		LastEventEmitted: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "last_emitted_timestamp_seconds",
			Help:      "Unix timestamp of the last emitted event record",
		}),

		// Storage metrics
		StoreQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Store query duration by store and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		StoreQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Store query errors by store and operation",
		}, []string{"store", "operation"}),

		// API metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
