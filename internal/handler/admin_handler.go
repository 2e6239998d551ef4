package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/middleware"
	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/internal/service"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
	"github.com/noah-isme/slot-booking/pkg/logger"
	"github.com/noah-isme/slot-booking/pkg/middleware/cors"
	"github.com/noah-isme/slot-booking/pkg/middleware/requestid"
	"github.com/noah-isme/slot-booking/pkg/response"
)

type metricsProvider interface {
	middleware.HTTPObserver
	Handler() http.Handler
	Snapshot() models.ServerStats
}

type reportProvider interface {
	Reservations(format, state string) (*service.Report, error)
}

type eventProvider interface {
	Recent(ctx context.Context, limit int) ([]models.SlotEvent, error)
}

type snapshotProvider interface {
	Save(format string) (string, error)
	List() ([]string, error)
	Open(name string) ([]byte, string, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// AdminHandler exposes health, metrics and reports over HTTP.
type AdminHandler struct {
	metrics   metricsProvider
	reports   reportProvider
	events    eventProvider
	snapshots snapshotProvider
	checks    map[string]ReadinessCheck
}

// NewAdminHandler constructs an admin handler. checks may be empty.
func NewAdminHandler(metrics metricsProvider, reports reportProvider, events eventProvider, snapshots snapshotProvider, checks map[string]ReadinessCheck) *AdminHandler {
	return &AdminHandler{metrics: metrics, reports: reports, events: events, snapshots: snapshots, checks: checks}
}

// Health responds with a generic OK payload for liveness usage.
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every readiness check.
func (h *AdminHandler) Ready(c *gin.Context) {
	failures := gin.H{}
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *AdminHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Stats returns aggregated request and slot counts.
func (h *AdminHandler) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Reservations downloads the inventory as csv or pdf.
func (h *AdminHandler) Reservations(c *gin.Context) {
	report, err := h.reports.Reservations(c.DefaultQuery("format", service.ReportFormatCSV), c.Query("state"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, report.Filename, report.ContentType, report.Body)
}

// Events lists the newest persisted slot events.
func (h *AdminHandler) Events(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}
	events, err := h.events.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"count": len(events)})
}

// ListSnapshots lists stored inventory snapshots.
func (h *AdminHandler) ListSnapshots(c *gin.Context) {
	names, err := h.snapshots.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, names, map[string]interface{}{"count": len(names)})
}

// CreateSnapshot stores the current inventory.
func (h *AdminHandler) CreateSnapshot(c *gin.Context) {
	name, err := h.snapshots.Save(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"name": name})
}

// DownloadSnapshot serves one stored snapshot.
func (h *AdminHandler) DownloadSnapshot(c *gin.Context) {
	name := c.Param("name")
	body, contentType, err := h.snapshots.Open(name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, name, contentType, body)
}

// AdminOptions configures the admin router.
type AdminOptions struct {
	// AllowedOrigins lists browser origins granted CORS access. Empty means
	// none.
	AllowedOrigins []string
	// Tokens guards write endpoints. When nil they are not registered and the
	// admin API is read-only.
	Tokens middleware.TokenValidator
}

// NewAdminEngine builds the admin HTTP router.
func NewAdminEngine(h *AdminHandler, metrics middleware.HTTPObserver, log *zap.Logger, opts AdminOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	r.GET("/stats", h.Stats)
	r.GET("/reservations", h.Reservations)
	r.GET("/events", h.Events)
	r.GET("/snapshots", h.ListSnapshots)
	if opts.Tokens != nil {
		r.POST("/snapshots", middleware.JWT(opts.Tokens), h.CreateSnapshot)
	}
	r.GET("/snapshots/:name", h.DownloadSnapshot)
	return r
}
