package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeUnknownBackend = "unknown_backend"
	OutcomeBackendError   = "backend_error"
	OutcomeInvalid        = "invalid"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "darling",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "darling",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	dispatchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "darling",
			Subsystem: "dispatch",
			Name:      "invocations_total",
			Help:      "Backend operations routed by the dispatcher.",
		},
		[]string{"backend", "operation", "outcome"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "darling",
			Subsystem: "dispatch",
			Name:      "invocation_duration_seconds",
			Help:      "Backend operation duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"backend", "operation", "outcome"},
	)
	registeredBackends = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "darling",
			Subsystem: "registry",
			Name:      "backends",
			Help:      "Backends in the module registry, host module included.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, dispatchRequests, dispatchDuration, registeredBackends)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDispatch counts one dispatcher invocation. Unknown backends are
// folded into a single label value to keep cardinality bounded.
func RecordDispatch(backend, operation, outcome string, duration time.Duration) {
	RegisterMetrics()
	if outcome == OutcomeUnknownBackend {
		backend = "unknown"
	}
	dispatchRequests.WithLabelValues(backend, operation, outcome).Inc()
	dispatchDuration.WithLabelValues(backend, operation, outcome).Observe(duration.Seconds())
}

func SetRegisteredBackends(n int) {
	RegisterMetrics()
	registeredBackends.Set(float64(n))
}
