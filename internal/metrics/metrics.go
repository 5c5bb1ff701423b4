// Package metrics defines the service's Prometheus metrics.
//
// All metrics use the putusan_ prefix. Record methods are nil-safe so
// components can run without metrics in tests and CLI commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks service-level Prometheus metrics.
type Metrics struct {
	// RequestsTotal counts HTTP requests by method, route and status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration tracks HTTP latency distribution by route.
	RequestDuration *prometheus.HistogramVec

	// ChatTurnsTotal counts chat workflow executions by outcome.
	ChatTurnsTotal *prometheus.CounterVec

	// ChatTurnDuration tracks end-to-end chat workflow latency.
	ChatTurnDuration prometheus.Histogram

	// BackupsTotal counts snapshot attempts by outcome.
	BackupsTotal *prometheus.CounterVec

	// LastBackupTimestamp is the Unix time of the last successful snapshot.
	LastBackupTimestamp prometheus.Gauge

	// LastBackupSizeBytes is the archive size of the last successful snapshot.
	LastBackupSizeBytes prometheus.Gauge

	// IndexedDocuments is the current vector store document count.
	IndexedDocuments prometheus.Gauge
}

// New creates service metrics registered on reg.
// Panics if registration fails (expected during initialization only).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "putusan_http_requests_total",
				Help: "Total HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "putusan_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ChatTurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "putusan_chat_turns_total",
				Help: "Total chat workflow executions by outcome",
			},
			[]string{"outcome"}, // "ok", "error"
		),
		ChatTurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "putusan_chat_turn_duration_seconds",
				Help: "End-to-end chat workflow duration in seconds",
				// Chat turns include several model calls; buckets reach
				// well past the default 10s ceiling.
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		BackupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "putusan_backups_total",
				Help: "Total vector store snapshot attempts by outcome",
			},
			[]string{"outcome"}, // "ok", "error"
		),
		LastBackupTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "putusan_last_backup_timestamp_seconds",
				Help: "Unix time of the last successful snapshot",
			},
		),
		LastBackupSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "putusan_last_backup_size_bytes",
				Help: "Archive size of the last successful snapshot",
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "putusan_indexed_documents",
				Help: "Current vector store document count",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ChatTurnsTotal,
		m.ChatTurnDuration,
		m.BackupsTotal,
		m.LastBackupTimestamp,
		m.LastBackupSizeBytes,
		m.IndexedDocuments,
	)

	return m
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordChatTurn records a chat workflow execution.
func (m *Metrics) RecordChatTurn(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
	m.ChatTurnDuration.Observe(durationSeconds)
}

// RecordBackup records a snapshot attempt. Size is only recorded on success.
func (m *Metrics) RecordBackup(err error, sizeBytes int64, completedAtUnix int64) {
	if m == nil {
		return
	}
	if err != nil {
		m.BackupsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BackupsTotal.WithLabelValues("ok").Inc()
	m.LastBackupTimestamp.Set(float64(completedAtUnix))
	m.LastBackupSizeBytes.Set(float64(sizeBytes))
}

// SetIndexedDocuments updates the document count gauge.
func (m *Metrics) SetIndexedDocuments(count int) {
	if m == nil {
		return
	}
	m.IndexedDocuments.Set(float64(count))
}
