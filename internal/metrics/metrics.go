// Package metrics defines the Prometheus metrics exposed at
// /api/system/metrics, grouped with the nekoobj_ prefix.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks request, transfer, and background-work counters. A nil
// *Metrics is valid and every method is a no-op, so callers don't need to
// guard on whether metrics are enabled.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	UploadBytesTotal prometheus.Counter
	DownloadBytes    prometheus.Counter
	RetriesTotal     *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	DiscordErrors    *prometheus.CounterVec
}

// New creates and registers the metrics against reg. Panics if registration
// fails, which is only expected during startup wiring mistakes.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nekoobj_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nekoobj_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		UploadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nekoobj_upload_bytes_total",
			Help: "Total bytes accepted by chunk uploads",
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nekoobj_download_bytes_total",
			Help: "Total bytes served by download/stream",
		}),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nekoobj_retries_total",
				Help: "Total retry attempts by operation",
			},
			[]string{"op"},
		),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nekoobj_background_queue_depth",
			Help: "Pending background cleanup/backup jobs",
		}),
		DiscordErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nekoobj_discord_errors_total",
				Help: "Total errored Discord API calls by kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.UploadBytesTotal,
		m.DownloadBytes,
		m.RetriesTotal,
		m.QueueDepth,
		m.DiscordErrors,
	)
	return m
}

func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil {
		return
	}
	m.UploadBytesTotal.Add(float64(n))
}

func (m *Metrics) AddDownloadBytes(n int64) {
	if m == nil {
		return
	}
	m.DownloadBytes.Add(float64(n))
}

func (m *Metrics) RecordRetry(op string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) RecordDiscordError(kind string) {
	if m == nil {
		return
	}
	m.DiscordErrors.WithLabelValues(kind).Inc()
}
