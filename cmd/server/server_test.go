package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-core/internal/adapter"
	"github.com/yourorg/payment-core/internal/config"
)

// stubGateway answers every call with a fixed verdict.
type stubGateway struct {
	accept bool
	err    error
	status string
}

func (g *stubGateway) verdict() (bool, error) { return g.accept, g.err }

func (g *stubGateway) Initiate(context.Context, string, string) (bool, error) { return g.verdict() }
func (g *stubGateway) Refund(context.Context, string, string) (bool, error)   { return g.verdict() }
func (g *stubGateway) CheckStatus(context.Context, string) (bool, error)      { return g.verdict() }
func (g *stubGateway) Cancel(context.Context, string) (bool, error)           { return g.verdict() }
func (g *stubGateway) Extend(context.Context, string) (bool, error)           { return g.verdict() }
func (g *stubGateway) Inquire(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.status, nil
}

func newTestRouter(t *testing.T, sadadGw *stubGateway) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Retry = config.Retry{MaxAttempts: 2, Delay: time.Millisecond}

	sepGw := &stubGateway{accept: true, status: "OK"}
	a, err := buildApp(cfg, adapter.NewRegistry(
		adapter.NewSadad(sadadGw),
		adapter.NewSep(sepGw),
	))
	require.NoError(t, err)
	return newRouter(a)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func seedOrder(t *testing.T, router *gin.Engine, orderRef, amount string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"order_ref":    orderRef,
		"customer_id":  "CUST-1",
		"total_amount": amount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestProcessPaymentEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})
	seedOrder(t, router, "ORD-1", "150000.00")

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref": "ORD-1",
		"provider":  "SADAD",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "Sadad")
	assert.NotEmpty(t, body["transaction_id"])

	// Order is now marked paid.
	ow := doJSON(t, router, http.MethodGet, "/orders/ORD-1", nil)
	require.Equal(t, http.StatusOK, ow.Code)
	assert.Equal(t, true, decode(t, ow)["paid"])
}

func TestProcessPaymentEndpointContractViolation(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"provider": "SADAD",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "order_ref")
}

func TestProcessPaymentEndpointUnknownProviderValue(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref": "ORD-2",
		"provider":  "PAYPAL",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessPaymentEndpointInvalidCard(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})
	seedOrder(t, router, "ORD-3", "100.00")

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref":   "ORD-3",
		"provider":    "SADAD",
		"card_number": "6037991234567890",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Validation failed")
}

func TestProcessPaymentEndpointValidIdentifiers(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})
	seedOrder(t, router, "ORD-4", "100.00")

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref":   "ORD-4",
		"provider":    "SADAD",
		"card_number": "6037991234567893",
		"national_id": "1234567891",
		"iban":        "IR050170000000123456789012",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestProcessPaymentEndpointDecline(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: false})
	seedOrder(t, router, "ORD-5", "100.00")

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref": "ORD-5",
		"provider":  "SADAD",
	})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "SADAD_DECLINED", body["error_code"])
}

func TestPaymentLifecycleEndpoints(t *testing.T) {
	gw := &stubGateway{accept: true, status: "COMPLETED"}
	router := newTestRouter(t, gw)
	seedOrder(t, router, "ORD-6", "100.00")

	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPost, "/payments", map[string]any{
			"order_ref": "ORD-6", "provider": "SADAD",
		}).Code)

	t.Run("Status", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/payments/ORD-6/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w)["message"], "SUCCESS")
	})

	t.Run("Duplicate", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/payments/ORD-6/duplicate", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["duplicate"])
	})

	t.Run("Inquiry", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/payments/ORD-6/inquiry", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w)["message"], "COMPLETED")
	})

	t.Run("Extend", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/payments/ORD-6/extend", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Dispute", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/payments/ORD-6/dispute", map[string]any{
			"reason": "cardholder claims non-delivery",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "DISPUTED: cardholder claims non-delivery", decode(t, w)["annotation"])
	})

	t.Run("Refund", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/payments/ORD-6/refund", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(t, w)["message"], "Refund")
	})

	t.Run("RefundAgain", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/payments/ORD-6/refund", nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ALREADY_REFUNDED", decode(t, w)["error_code"])
	})
}

func TestRetryEndpointAfterTimeout(t *testing.T) {
	gw := &stubGateway{err: context.DeadlineExceeded}
	router := newTestRouter(t, gw)
	seedOrder(t, router, "ORD-7", "100.00")

	w := doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref": "ORD-7", "provider": "SADAD",
	})
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	// Provider comes back; the retry drives the payment home.
	gw.err = nil
	gw.accept = true
	rw := doJSON(t, router, http.MethodPost, "/payments/ORD-7/retry", nil)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Equal(t, true, decode(t, rw)["success"])
}

func TestAnnotationEndpointNotFound(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})
	w := doJSON(t, router, http.MethodPost, "/payments/ORD-NONE/dispute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRetrospectiveEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})
	seedOrder(t, router, "ORD-8", "2000.00")
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPost, "/payments", map[string]any{
			"order_ref": "ORD-8", "provider": "SADAD",
		}).Code)

	w := doJSON(t, router, http.MethodGet, "/reports/retrospective", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total_transactions"])
	assert.Equal(t, "2000.00", body["total_volume"])
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	seedOrder(t, router, "ORD-9", "10.00")
	doJSON(t, router, http.MethodPost, "/payments", map[string]any{
		"order_ref": "ORD-9", "provider": "SADAD",
	})

	mw := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, mw.Code)
	assert.Contains(t, mw.Body.String(), "payment_operations_total")
}

func TestCreateOrderValidation(t *testing.T) {
	router := newTestRouter(t, &stubGateway{accept: true})

	w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"order_ref":    "ORD-10",
		"total_amount": "0.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
