package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/database"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

const burgerOrder = `{
	"internalId": "ORD-100",
	"menuDetails": [{
		"_id": "line-1", "name": "Burger", "qty": 2,
		"price": {"unitPrice": 10, "grossAmount": 20, "taxExclusiveUnitPrice": 9.09091,
		          "taxAmount": 1.81818, "netAmount": 18.18182, "totalPrice": 20},
		"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818}]
	}],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "name": "VAT", "rate": 10, "amount": 1.81818}],
	"paymentDetails": {"priceDetails": {"unitPrice": 20, "discountAmount": 0, "totalPrice": 20, "taxAmount": 1.81818}}
}`

type defaults struct{}

func (defaults) Current() verification.Config { return verification.DefaultConfig() }

type apiResponse struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Code       string          `json:"code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func newAPI(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(database.DriverSQLite, "file::memory:", "", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	orders := repository.NewOrderRepository(db)
	audit := repository.NewAuditRepository(db)
	verifySvc := service.NewTaxVerificationService(orders, audit, defaults{}, nil, 2, zap.NewNop())
	importSvc := service.NewOrderImportService(orders, audit, repository.NewTransactionManager(db), zap.NewNop())

	r := gin.New()
	NewTaxVerificationHandler(verifySvc).RegisterRoutes(r.Group(""))
	NewOrderHandler(importSvc).RegisterRoutes(r.Group(""))
	NewAuditHandler(service.NewAuditService(audit)).RegisterRoutes(r.Group(""))
	NewStatisticsHandler(service.NewStatisticsService(repository.NewStatisticsRepository(db))).RegisterRoutes(r.Group(""))
	return r
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "6f0c2a8e-1d2b-4c3d-9e4f-5a6b7c8d9e0f",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, "qa"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestTaxVerificationHandler_StoredOrder(t *testing.T) {
	r := newAPI(t)

	code, _ := do(t, r, http.MethodPost, "/api/orders", burgerOrder)
	require.Equal(t, http.StatusCreated, code)

	code, resp := do(t, r, http.MethodGet, "/api/orders/ORD-100/tax-verification", "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, "clean", summary["status"])
	assert.NotContains(t, summary, "result")

	code, resp = do(t, r, http.MethodGet, "/api/orders/ORD-100/tax-verification?detail=true&precision=4", "")
	require.Equal(t, http.StatusOK, code)
	var detailed service.TaxVerificationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &detailed))
	require.NotNil(t, detailed.Result)
	assert.Equal(t, 4, detailed.Precision)
}

func TestTaxVerificationHandler_ErrorMapping(t *testing.T) {
	r := newAPI(t)
	untaxed := strings.Replace(burgerOrder, `"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818}]`, `"taxes": []`, 1)

	cases := []struct {
		name     string
		method   string
		path     string
		body     string
		want     int
		wantCode string
	}{
		{"unknown order", http.MethodGet, "/api/orders/missing/tax-verification", "", http.StatusNotFound, CodeOrderNotFound},
		{"non numeric precision", http.MethodGet, "/api/orders/missing/tax-verification?precision=abc", "", http.StatusBadRequest, CodeInvalidPrecision},
		{"precision out of range", http.MethodPost, "/api/tax-verification?precision=9", burgerOrder, http.StatusBadRequest, CodeInvalidPrecision},
		{"malformed document", http.MethodPost, "/api/tax-verification", "{", http.StatusBadRequest, CodeInvalidDocument},
		{"no tax assignment", http.MethodPost, "/api/tax-verification", untaxed, http.StatusUnprocessableEntity, CodeTaxAssignmentMissing},
		{"empty batch", http.MethodPost, "/api/tax-verification/batch", `{"order_ids": []}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := do(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, code)
			assert.Equal(t, "error", resp.Status)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, resp.Code)
			}
		})
	}

	_, resp := do(t, r, http.MethodPost, "/api/tax-verification", untaxed)
	assert.Contains(t, resp.Error, "found 1 menu items and 0 modifiers")
}

func TestTaxVerificationHandler_Batch(t *testing.T) {
	r := newAPI(t)
	do(t, r, http.MethodPost, "/api/orders", burgerOrder)

	code, resp := do(t, r, http.MethodPost, "/api/tax-verification/batch", `{"order_ids": ["ORD-100", "ORD-999"]}`)
	require.Equal(t, http.StatusOK, code)

	var batch service.BatchVerificationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &batch))
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 1, batch.Clean)
	assert.Equal(t, 1, batch.NotFound)
}

func TestOrderAndAuditHandlers_List(t *testing.T) {
	r := newAPI(t)
	do(t, r, http.MethodPost, "/api/orders", burgerOrder)
	do(t, r, http.MethodGet, "/api/orders/ORD-100/tax-verification", "")

	code, resp := do(t, r, http.MethodGet, "/api/orders?page=1&limit=5", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"total":1`)
	assert.Contains(t, string(resp.Data), `"total_pages":1`)

	code, resp = do(t, r, http.MethodGet, "/api/audit-logs?order_id=ORD-100", "")
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Logs  []service.AuditLogResponse `json:"logs"`
		Total int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.EqualValues(t, 2, page.Total)
	for _, l := range page.Logs {
		assert.Equal(t, "6f0c2a8e-1d2b-4c3d-9e4f-5a6b7c8d9e0f", l.UserID)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	r := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatisticsHandler(t *testing.T) {
	r := newAPI(t)
	do(t, r, http.MethodPost, "/api/orders", burgerOrder)
	do(t, r, http.MethodGet, "/api/orders/ORD-100/tax-verification", "")

	start := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	code, resp := do(t, r, http.MethodGet, "/api/statistics?start_date="+start+"&end_date="+end, "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	var stats struct {
		Total int `json:"total"`
		Clean int `json:"clean"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Clean)

	code, _ = do(t, r, http.MethodGet, "/api/statistics?start_date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/api/statistics?start_date="+end+"&end_date="+start, "")
	assert.Equal(t, http.StatusBadRequest, code)
}
