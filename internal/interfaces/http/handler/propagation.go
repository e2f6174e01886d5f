package handler

import (
	"net/http"

	propagationapp "github.com/erp/records/internal/application/propagation"
	"github.com/erp/records/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PropagationHandler serves the dead-letter and statistics endpoints of
// the propagation queue
type PropagationHandler struct {
	BaseHandler
	ops *propagationapp.OpsService
}

// NewPropagationHandler creates a new propagation handler
func NewPropagationHandler(ops *propagationapp.OpsService) *PropagationHandler {
	return &PropagationHandler{ops: ops}
}

// RetryAllResponse reports how many dead jobs were reset
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// RegisterRoutes mounts the handler under /system/propagation
func (h *PropagationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/system/propagation")
	g.GET("/dead", h.ListDead)
	g.POST("/dead/retry-all", h.RetryAll)
	g.POST("/dead/:id/retry", h.Retry)
	g.GET("/jobs/:id", h.GetJob)
	g.GET("/stats", h.Stats)
}

// ListDead godoc
// @ID           listPropagationDeadJobs
// @Summary      List dead propagation jobs
// @Tags         propagation
// @Produce      json
// @Param        tenant_id query string false "Tenant ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Router       /system/propagation/dead [get]
func (h *PropagationHandler) ListDead(c *gin.Context) {
	var filter propagationapp.DeadJobFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	tenantID, ok := parseTenantQuery(c)
	if !ok {
		h.BadRequest(c, "Invalid tenant_id")
		return
	}
	filter.TenantID = tenantID

	page, err := h.ops.ListDead(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetJob godoc
// @ID           getPropagationJob
// @Summary      Get a propagation job
// @Tags         propagation
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Router       /system/propagation/jobs/{id} [get]
func (h *PropagationHandler) GetJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.ops.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// Retry godoc
// @ID           retryPropagationDeadJob
// @Summary      Retry a dead propagation job
// @Description  Reset a dead job to pending with a fresh attempt budget
// @Tags         propagation
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Router       /system/propagation/dead/{id}/retry [post]
func (h *PropagationHandler) Retry(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.ops.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// RetryAll godoc
// @ID           retryAllPropagationDeadJobs
// @Summary      Retry all dead propagation jobs
// @Tags         propagation
// @Produce      json
// @Param        tenant_id query string false "Tenant ID" format(uuid)
// @Router       /system/propagation/dead/retry-all [post]
func (h *PropagationHandler) RetryAll(c *gin.Context) {
	tenantID, ok := parseTenantQuery(c)
	if !ok {
		h.BadRequest(c, "Invalid tenant_id")
		return
	}

	count, err := h.ops.RetryAll(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

// Stats godoc
// @ID           getPropagationStats
// @Summary      Count propagation jobs by status
// @Tags         propagation
// @Produce      json
// @Param        tenant_id query string false "Tenant ID" format(uuid)
// @Router       /system/propagation/stats [get]
func (h *PropagationHandler) Stats(c *gin.Context) {
	tenantID, ok := parseTenantQuery(c)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid tenant_id")
		return
	}

	stats, err := h.ops.Stats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
