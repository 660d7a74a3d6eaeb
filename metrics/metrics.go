// Package metrics exposes prometheus collectors for the translation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	translations   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	chunks         *prometheus.CounterVec
}

// New creates and registers the service collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "avatartalk",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avatartalk",
			Name:      "translations_total",
			Help:      "Completed translation runs by mode and status.",
		}, []string{"mode", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avatartalk",
			Name:      "active_sessions",
			Help:      "Streaming sessions currently connected.",
		}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avatartalk",
			Name:      "chunks_total",
			Help:      "Streaming chunks processed by status.",
		}, []string{"status"}),
	}

	registry.MustRegister(m.stageDuration, m.translations, m.activeSessions, m.chunks)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage satisfies pipeline.Observer.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// TranslationFinished counts one completed run.
func (m *Metrics) TranslationFinished(mode string, success bool) {
	m.translations.WithLabelValues(mode, statusLabel(success)).Inc()
}

// SessionOpened satisfies session.Stats.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }

// SessionClosed satisfies session.Stats.
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// ChunkProcessed satisfies session.Stats.
func (m *Metrics) ChunkProcessed(success bool) {
	m.chunks.WithLabelValues(statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "ok"
	}
	return "error"
}
