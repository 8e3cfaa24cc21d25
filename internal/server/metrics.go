package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmask_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdfmask_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	redactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmask_redactions_total",
		Help: "Total number of redaction runs by terminal status",
	}, []string{"status"})

	redactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdfmask_redaction_duration_seconds",
		Help:    "End-to-end redaction run duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"status"})

	redactionHits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfmask_redaction_hits",
		Help:    "Number of literal occurrences redacted per run",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	uploadSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfmask_upload_size_bytes",
		Help:    "Size of uploaded documents in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pdfmask_websocket_connections",
		Help: "Currently open websocket connections",
	})

	websocketMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdfmask_websocket_messages_total",
		Help: "Total number of websocket messages sent",
	})

	rateLimitHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmask_rate_limit_hits_total",
		Help: "Total number of requests rejected by rate limiting",
	}, []string{"limit_type"})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func recordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func recordRedaction(status string, duration time.Duration) {
	redactionsTotal.WithLabelValues(status).Inc()
	redactionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func recordHits(hits int) {
	redactionHits.Observe(float64(hits))
}

func recordUploadSize(size int) {
	uploadSizeBytes.Observe(float64(size))
}

func recordWebsocketConnect()    { websocketConnections.Inc() }
func recordWebsocketDisconnect() { websocketConnections.Dec() }
func recordWebsocketMessage()    { websocketMessagesTotal.Inc() }

func recordRateLimitHit(limitType string) {
	rateLimitHitsTotal.WithLabelValues(limitType).Inc()
}
