// Package metrics holds the Prometheus collectors for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tgrelay"

// ServiceName is the AppContext service the shared Metrics is published under.
const ServiceName = "metrics"

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	registry *prometheus.Registry

	// Telegram side
	UpdatesTotal     *prometheus.CounterVec
	UpdatesDropped   *prometheus.CounterVec
	PollErrors       prometheus.Counter
	PollDuration     prometheus.Histogram
	TelegramSent     prometheus.Counter
	TelegramErrors   prometheus.Counter
	TelegramDropped  prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	LinesTruncated   prometheus.Counter
	DownloadsTotal   *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram

	// IRC side
	IRCRelayed    *prometheus.CounterVec
	IRCConnected  prometheus.Gauge
	IRCReconnects prometheus.Counter

	// Storage
	FilesPruned prometheus.Counter

	// HTTP gateway
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg. A nil reg gets a fresh
// private registry, which keeps tests independent of each other.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		UpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates routed, by classified kind.",
		}, []string{"kind"}),
		UpdatesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_dropped_total",
			Help:      "Telegram updates dropped before relay, by reason.",
		}, []string{"reason"}),
		PollErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_poll_errors_total",
			Help:      "Failed getUpdates calls.",
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_poll_duration_seconds",
			Help:      "Duration of getUpdates calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TelegramSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_sent_total",
			Help:      "Messages delivered to Telegram.",
		}),
		TelegramErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_send_errors_total",
			Help:      "Failed sendMessage calls.",
		}),
		TelegramDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_send_dropped_total",
			Help:      "Telegram messages dropped because the send queue was full.",
		}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_commands_total",
			Help:      "Telegram commands handled, by command and result.",
		}, []string{"command", "result"}),
		LinesTruncated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_truncated_total",
			Help:      "Multi-line Telegram messages cut off before relay.",
		}),
		DownloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Telegram file downloads, by result.",
		}, []string{"result"}),
		DownloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written to the file store.",
		}),
		DownloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of complete file fetches.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		IRCRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "irc_messages_total",
			Help:      "IRC messages handled, by direction.",
		}, []string{"direction"}),
		IRCConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "irc_connected",
			Help:      "1 while the IRC connection is registered.",
		}),
		IRCReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "irc_reconnects_total",
			Help:      "IRC connection attempts after a disconnect.",
		}),

		FilesPruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_files_pruned_total",
			Help:      "Stored files removed by retention.",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests, by status code and method.",
		}, []string{"code", "method"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// WithRuntimeCollectors registers the Go runtime and process collectors.
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
