package handler

import (
	"errors"
	"net/http"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	CodeInvalidPrecision     = "INVALID_PRECISION"
	CodeInvalidDocument      = "INVALID_DOCUMENT"
	CodeEmptyBatch           = "EMPTY_BATCH"
	CodeBatchTooLarge        = "BATCH_TOO_LARGE"
	CodeOrderNotFound        = "ORDER_NOT_FOUND"
	CodeTaxAssignmentMissing = "TAX_ASSIGNMENT_MISSING"
	CodeInternal             = "INTERNAL"
)

// statusFor maps service errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, verification.ErrInvalidPrecision):
		return http.StatusBadRequest, CodeInvalidPrecision
	case errors.Is(err, service.ErrInvalidDocument):
		return http.StatusBadRequest, CodeInvalidDocument
	case errors.Is(err, service.ErrEmptyBatch):
		return http.StatusBadRequest, CodeEmptyBatch
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest, CodeBatchTooLarge
	case errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound, CodeOrderNotFound
	case errors.Is(err, verification.ErrNoTaxAssignment):
		return http.StatusUnprocessableEntity, CodeTaxAssignmentMissing
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, response.CodedError(status, code, err.Error()))
}
