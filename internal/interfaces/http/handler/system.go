package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and metrics endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        Pinger
	metrics   http.Handler
}

// SystemHandlerConfig wires the optional dependencies of SystemHandler
type SystemHandlerConfig struct {
	Name    string
	Version string
	DB      Pinger
	// Metrics is the Prometheus exposition handler; nil disables /metrics
	Metrics http.Handler
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(cfg SystemHandlerConfig) *SystemHandler {
	return &SystemHandler{
		name:      cfg.Name,
		version:   cfg.Version,
		startTime: time.Now(),
		db:        cfg.DB,
		metrics:   cfg.Metrics,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Health handles GET /health. It answers 503 when the database is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]string{},
	}
	status := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}

// Metrics handles GET /metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "metrics exporter is not prometheus")
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}
