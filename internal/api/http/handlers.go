package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ksavkin/SwiftLabel/internal/domain/session"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/monitoring"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
	"github.com/ksavkin/SwiftLabel/internal/providers/formats"
)

// Events receives domain events for fan-out to live clients.
type Events interface {
	Broadcast(eventType string, payload interface{})
	ConnectionCount() int
}

// noopEvents is used when no live channel is wired (tests).
type noopEvents struct{}

func (noopEvents) Broadcast(string, interface{}) {}

func (noopEvents) ConnectionCount() int { return 0 }

// Handlers contains all HTTP handlers
type Handlers struct {
	engine   *session.Engine
	fs       *filesystem.Ops
	detector *formats.Detector
	events   Events
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	engine *session.Engine,
	fs *filesystem.Ops,
	detector *formats.Detector,
	events Events,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if events == nil {
		events = noopEvents{}
	}
	return &Handlers{
		engine:   engine,
		fs:       fs,
		detector: detector,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "SwiftLabel",
		"version": session.Version,
	})
}

// Health handles the health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"working_directory": h.engine.WorkingDirectory(),
		"classes":           h.engine.Classes(),
		"total_images":      h.engine.GetStats().TotalImages,
		"ws_connections":    h.events.ConnectionCount(),
	})
}

// GetSession returns the complete session state
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetState())
}

// GetSessionInfo reports whether a restored session carries pending work
func (h *Handlers) GetSessionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetInfo())
}

// ClearSession discards all tracked changes and starts fresh
func (h *Handlers) ClearSession(c *gin.Context) {
	if err := h.engine.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session cleared"})
}

// GetStats returns labeling statistics
func (h *Handlers) GetStats(c *gin.Context) {
	stats := h.engine.GetStats()
	h.metrics.SetCatalogSize(stats.TotalImages, stats.LabeledCount)
	c.JSON(http.StatusOK, stats)
}

// ListImages returns the full catalog
func (h *Handlers) ListImages(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetState().Images)
}

// GetFormat runs folder-format detection over the working directory
func (h *Handlers) GetFormat(c *gin.Context) {
	detection, err := h.detector.Detect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"format":            detection.Format,
		"format_label":      detection.Label,
		"detected_paths":    detection.ClassFolders,
		"classes_from_file": h.engine.Classes(),
		"confidence":        detection.Confidence,
	})
}

// imageIDParam extracts and decodes the wildcard image ID path parameter.
func imageIDParam(c *gin.Context) string {
	id := c.Param("id")
	if len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	return id
}

// statusFor maps command outcome codes to HTTP statuses.
func statusFor(err error) int {
	switch session.CodeOf(err) {
	case session.CodeNotFound:
		return http.StatusNotFound
	case session.CodeInvalidClass, session.CodeInvalidPath,
		session.CodeAlreadyDeleted, session.CodeEmptyStack:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func commandError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":   string(session.CodeOf(err)),
		"message": err.Error(),
	})
}
