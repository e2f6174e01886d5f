package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/telemetry"
	"github.com/erp/records/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	db        Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name string, db Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		db:        db,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthResponse represents the readiness response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// RegisterProbes mounts /healthz and /readyz at the engine root
func (h *SystemHandler) RegisterProbes(r gin.IRoutes) {
	r.GET("/healthz", h.Live)
	r.GET("/readyz", h.Ready)
}

// RegisterRoutes mounts /system/info
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/system/info", h.GetSystemInfo)
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   telemetry.ServiceVersion,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Live reports that the process is serving
func (h *SystemHandler) Live(c *gin.Context) {
	h.Success(c, HealthResponse{Status: "ok"})
}

// Ready reports whether the database answers
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    HealthResponse{Status: "unavailable", Database: "down"},
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeUnavailable, Message: "Database is unreachable", RequestID: getRequestID(c)},
		})
		return
	}
	h.Success(c, HealthResponse{Status: "ok", Database: "up"})
}
