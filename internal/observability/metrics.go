package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "amlctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	parseResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlctl",
			Subsystem: "parse",
			Name:      "total",
			Help:      "AML messages parsed, by outcome.",
		},
		[]string{"node", "result"},
	)
	parseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlctl",
			Subsystem: "parse",
			Name:      "failures_total",
			Help:      "AML parse and validation failures, by reason.",
		},
		[]string{"node", "reason"},
	)
	messageLength = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "amlctl",
			Subsystem: "parse",
			Name:      "message_length_chars",
			Help:      "Character count of received AML messages.",
			Buckets:   prometheus.LinearBuckets(32, 32, 8),
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, parseResults, parseFailures, messageLength)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordParse counts one parse attempt of a message with length characters.
func RecordParse(node string, length int, err error) {
	RegisterMetrics()
	parseResults.WithLabelValues(node, aml.Outcome(err)).Inc()
	messageLength.WithLabelValues(node).Observe(float64(length))
	if err != nil {
		parseFailures.WithLabelValues(node, aml.Reason(err)).Inc()
	}
}
