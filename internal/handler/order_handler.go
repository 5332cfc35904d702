package handler

import (
	"io"
	"net/http"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/pagination"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	importService service.OrderImportService
}

func NewOrderHandler(importService service.OrderImportService) *OrderHandler {
	return &OrderHandler{importService: importService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/orders")
	group.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleQA))
	{
		group.GET("", h.ListOrders)
		group.POST("", h.ImportOrders)
	}
}

// ImportOrders stores one order document or an array of them
// @Summary      Import order documents
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response{data=service.ImportOrdersResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) ImportOrders(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.importService.ImportDocuments(c.Request.Context(), raw, middleware.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListOrders pages through stored order documents
// @Summary      List stored orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)

	orders, total, err := h.importService.ListOrders(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve orders: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders":      orders,
		"total":       total,
		"total_pages": p.TotalPages(total),
		"page":        p.Page,
		"limit":       p.Limit,
	}))
}
