package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "toyoko", Name: "cycles_total", Help: "Completed monitoring cycles."},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "toyoko", Name: "cycle_duration_seconds",
			Help:    "Full cycle duration seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toyoko", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toyoko", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	Verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toyoko", Name: "target_verdicts_total", Help: "Per-target cycle verdicts."},
		[]string{"kind", "available"}, // kind: area|prefecture
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toyoko", Name: "notifications_total", Help: "Notification sends."},
		[]string{"channel", "event", "status"}, // status: ok|error
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Cycles, CycleDuration, ExternalRequests, ExternalLatency, Verdicts, Notifications)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveCycle(dur time.Duration) {
	Cycles.Inc()
	CycleDuration.Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveVerdict(kind string, available bool) {
	Verdicts.WithLabelValues(kind, strconv.FormatBool(available)).Inc()
}

func ObserveNotification(channel, event, status string) {
	Notifications.WithLabelValues(channel, event, status).Inc()
}
