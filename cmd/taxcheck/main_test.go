package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soupOrders = `[{
	"internalId": "ORD-CLI-1",
	"menuDetails": [{
		"_id": "line-1", "name": "Soup", "qty": 2,
		"price": {"unitPrice": 10, "grossAmount": 20, "taxExclusiveUnitPrice": 9.09091,
		          "taxAmount": 1.81818, "netAmount": 18.18182, "totalPrice": 20},
		"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818}]
	}],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "name": "VAT", "rate": 10, "amount": 1.81818}],
	"paymentDetails": {"priceDetails": {"unitPrice": 20, "discountAmount": 0, "totalPrice": 20, "taxAmount": 1.81818}}
}, {
	"internalId": "ORD-CLI-2",
	"menuDetails": [{"_id": "line-1", "name": "Bread", "qty": 1, "price": {"unitPrice": 4, "totalPrice": 4}}],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "name": "VAT", "rate": 10, "amount": 0.36364}]
}]`

func setupStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "orders.db"))
	t.Setenv("LOG_LEVEL", "error")

	file := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(file, []byte(soupOrders), 0o600))
	return file
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "verify-order")

	stderr.Reset()
	assert.Equal(t, exitUsage, run([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)

	assert.Equal(t, exitOK, run([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), version)
}

func TestVerifyOrder_FlagValidation(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitUsage, run([]string{"verify-order"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--order-id is required")

	stderr.Reset()
	assert.Equal(t, exitUsage, run([]string{"verify-order", "--order-id", "X", "--tax-view", "wide"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown tax view")

	stderr.Reset()
	assert.Equal(t, exitUsage, run([]string{"verify-order", "--order-id", "X", "--env", "qa"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown environment")
}

func TestImportThenVerify(t *testing.T) {
	file := setupStore(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"import-orders", "--file", file}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "Imported 2 orders (2 inserted, 0 updated)")

	stdout.Reset()
	code = run([]string{"verify-order", "--order-id", "ORD-CLI-1", "--tax-view", "full"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "ORD-CLI-1")
	assert.Contains(t, stdout.String(), "VAT")

	xlsx := filepath.Join(t.TempDir(), "ORD-CLI-1.xlsx")
	stdout.Reset()
	code = run([]string{"export", "--order-id", "ORD-CLI-1", "-o", xlsx}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestVerifyOrder_JSONOutput(t *testing.T) {
	file := setupStore(t)

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"import-orders", "-f", file}, &stdout, &stderr))

	stdout.Reset()
	code := run([]string{"verify-order", "--order-id", "ORD-CLI-1", "--json"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), `"ORD-CLI-1"`)
}

func TestVerifyOrder_MissingTaxAssignment(t *testing.T) {
	file := setupStore(t)

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"import-orders", "--file", file}, &stdout, &stderr))

	stderr.Reset()
	code := run([]string{"verify-order", "--order-id", "ORD-CLI-2"}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "TAX ASSIGNMENT ERROR")
}

func TestVerifyOrder_LogFile(t *testing.T) {
	file := setupStore(t)

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"import-orders", "--file", file}, &stdout, &stderr))

	logPath := filepath.Join(t.TempDir(), "logs", "taxcheck.log")
	code := run([]string{"verify-order", "--order-id", "ORD-CLI-1", "--verbose", "--log-file", logPath}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "verifying order")
	assert.Contains(t, string(logged), "ORD-CLI-1")
}

func TestVerifyOrder_NotFound(t *testing.T) {
	setupStore(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"verify-order", "--order-id", "ORD-NOPE"}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "not found")
}
