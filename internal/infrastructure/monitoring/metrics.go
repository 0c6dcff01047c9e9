package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Labeling metrics
	LabelsApplied   prometheus.Counter
	DeletionsStaged prometheus.Counter
	UndosTotal      prometheus.Counter
	CommitsTotal    *prometheus.CounterVec
	CommitMoves     prometheus.Counter
	CommitDeletes   prometheus.Counter

	// Catalog metrics
	ImagesTotal   prometheus.Gauge
	ImagesLabeled prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	WSConnections int64   `json:"ws_connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	totalDuration float64
	requestCount  int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swiftlabel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swiftlabel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swiftlabel_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		LabelsApplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swiftlabel_labels_applied_total",
				Help: "Total number of label commands applied",
			},
		),
		DeletionsStaged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swiftlabel_deletions_staged_total",
				Help: "Total number of images marked for deletion",
			},
		),
		UndosTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swiftlabel_undos_total",
				Help: "Total number of undo commands",
			},
		),
		CommitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swiftlabel_commits_total",
				Help: "Total number of commits by outcome",
			},
			[]string{"outcome"},
		),
		CommitMoves: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swiftlabel_commit_moves_total",
				Help: "Total number of files moved by commits",
			},
		),
		CommitDeletes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swiftlabel_commit_deletes_total",
				Help: "Total number of files deleted by commits",
			},
		),

		ImagesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swiftlabel_images_total",
				Help: "Number of images in the catalog",
			},
		),
		ImagesLabeled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swiftlabel_images_labeled",
				Help: "Number of labeled images in the catalog",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swiftlabel_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swiftlabel_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swiftlabel_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	m.snapshot.requestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordLabel records a label command
func (m *Metrics) RecordLabel() {
	m.LabelsApplied.Inc()
}

// RecordDeletion records a delete command
func (m *Metrics) RecordDeletion() {
	m.DeletionsStaged.Inc()
}

// RecordUndo records an undo command
func (m *Metrics) RecordUndo() {
	m.UndosTotal.Inc()
}

// RecordCommit records a commit outcome with its applied counts
func (m *Metrics) RecordCommit(success bool, moves, deletes int) {
	outcome := "success"
	if !success {
		outcome = "partial"
	}
	m.CommitsTotal.WithLabelValues(outcome).Inc()
	m.CommitMoves.Add(float64(moves))
	m.CommitDeletes.Add(float64(deletes))
}

// SetCatalogSize sets the catalog gauges
func (m *Metrics) SetCatalogSize(total, labeled int) {
	m.ImagesTotal.Set(float64(total))
	m.ImagesLabeled.Set(float64(labeled))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.requestCount > 0 {
		snap.AvgDurationMs = snap.totalDuration / float64(snap.requestCount) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
