package telemetry

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opencodeweb_requests_total",
		Help: "HTTP requests handled by the gateway, by method and status.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opencodeweb_request_duration_seconds",
		Help:    "Request latency as observed at the gateway edge.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	proxyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opencodeweb_proxy_errors_total",
		Help: "Upstream transport failures answered with 502.",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opencodeweb_active_streams",
		Help: "Event-stream relay connections currently open.",
	})

	journalAppendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opencodeweb_journal_appends_total",
		Help: "Command records appended to the audit journal.",
	})
)

// Shadow counters mirror the prometheus series so the ops status endpoint
// can report values without scraping the registry.
var (
	streamCount   atomic.Int64
	proxyErrCount atomic.Int64
	appendCount   atomic.Int64
)

// ProxyError counts one upstream transport failure.
func ProxyError() {
	proxyErrorsTotal.Inc()
	proxyErrCount.Add(1)
}

// StreamOpened marks a relay connection as open.
func StreamOpened() {
	activeStreams.Inc()
	streamCount.Add(1)
}

// StreamClosed marks a relay connection as closed.
func StreamClosed() {
	activeStreams.Dec()
	streamCount.Add(-1)
}

// JournalAppend counts one audit journal append.
func JournalAppend() {
	journalAppendsTotal.Inc()
	appendCount.Add(1)
}

// ActiveStreams returns the number of relay connections currently open.
func ActiveStreams() int64 { return streamCount.Load() }

// ProxyErrors returns the total upstream transport failures so far.
func ProxyErrors() int64 { return proxyErrCount.Load() }

// JournalAppends returns the total journal appends so far.
func JournalAppends() int64 { return appendCount.Load() }

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request counts and latency for every handled request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
