package handler

import (
	"net/http"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/pagination"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleQA))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs pages through verification and import history
// @Summary      Get audit logs
// @Description  Retrieves the verification trail, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        order_id  query     string  false  "Only entries for this external order id"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("order_id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":        logs,
		"total":       total,
		"total_pages": p.TotalPages(total),
		"page":        p.Page,
		"limit":       p.Limit,
	}))
}
