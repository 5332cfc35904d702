package handler

import (
	"net/http"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	statsGroup.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleQA))
	{
		statsGroup.GET("", h.GetStatistics)
	}
}

// @Summary      Get Verification Statistics
// @Description  Verification outcomes per discount pattern and the orders with the most tax mismatches, bounded by time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339, default start of current month)"
// @Param        end_date   query string false "End Date (RFC3339, default now)"
// @Success      200 {object} response.Response{data=model.VerificationStatistics}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now().UTC()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	if endDate.Before(startDate) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "end_date must not be before start_date"))
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
