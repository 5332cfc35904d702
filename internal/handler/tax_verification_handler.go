package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
)

const maxDocumentBytes = 10 << 20

type TaxVerificationHandler struct {
	verificationService service.TaxVerificationService
}

func NewTaxVerificationHandler(verificationService service.TaxVerificationService) *TaxVerificationHandler {
	return &TaxVerificationHandler{verificationService: verificationService}
}

func (h *TaxVerificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	api.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleQA))
	{
		api.GET("/orders/:externalId/tax-verification", h.VerifyOrder)
		api.POST("/tax-verification", h.VerifyDocument)
		api.POST("/tax-verification/batch", h.VerifyBatch)
	}
}

// VerifyOrder verifies a stored order by its external id
// @Summary      Verify a stored order
// @Description  Recomputes every tax of the order and reconciles it against the stored amounts
// @Tags         tax-verification
// @Security     BearerAuth
// @Produce      json
// @Param        externalId  path      string  true   "External order id (internalId)"
// @Param        precision   query     int     false  "Decimal places, 2 to 8 (default 5)"
// @Param        detail      query     bool    false  "Include the full finding set"
// @Success      200  {object}  response.Response{data=service.TaxVerificationResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/orders/{externalId}/tax-verification [get]
func (h *TaxVerificationHandler) VerifyOrder(c *gin.Context) {
	opts, ok := verifyOptions(c)
	if !ok {
		return
	}

	res, err := h.verificationService.VerifyOrderByID(c.Request.Context(), c.Param("externalId"), opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, withDetail(c, res)))
}

// VerifyDocument verifies an order document posted in the body
// @Summary      Verify an order document
// @Tags         tax-verification
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        precision  query     int   false  "Decimal places, 2 to 8 (default 5)"
// @Param        detail     query     bool  false  "Include the full finding set"
// @Success      200  {object}  response.Response{data=service.TaxVerificationResponse}
// @Failure      400  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/tax-verification [post]
func (h *TaxVerificationHandler) VerifyDocument(c *gin.Context) {
	opts, ok := verifyOptions(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.verificationService.VerifyDocument(c.Request.Context(), raw, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, withDetail(c, res)))
}

// VerifyBatch verifies several stored orders concurrently
// @Summary      Verify stored orders in bulk
// @Tags         tax-verification
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.BatchVerificationRequest  true  "Order ids and precision"
// @Success      200  {object}  response.Response{data=service.BatchVerificationResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/tax-verification/batch [post]
func (h *TaxVerificationHandler) VerifyBatch(c *gin.Context) {
	var req service.BatchVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.verificationService.VerifyBatch(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

func verifyOptions(c *gin.Context) (service.VerifyOptions, bool) {
	opts := service.VerifyOptions{UserID: middleware.UserID(c)}
	if p := c.Query("precision"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.CodedError(http.StatusBadRequest, CodeInvalidPrecision, fmt.Sprintf("invalid precision %q", p)))
			return opts, false
		}
		opts.Precision = n
	}
	return opts, true
}

func withDetail(c *gin.Context, res *service.TaxVerificationResponse) *service.TaxVerificationResponse {
	if detail, _ := strconv.ParseBool(c.Query("detail")); !detail {
		res.Result = nil
	}
	return res
}
