package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tikiti/internal/database"
	"tikiti/internal/repositories"
	"tikiti/internal/services"
)

func setupCallbackRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	orderRepo := repositories.NewOrderRepository(db.DB)
	paymentRepo := repositories.NewPaymentRepository(db.DB)
	issuer := services.NewTicketIssuerService(orderRepo, "test-secret")
	reconciler := services.NewReconciliationService(orderRepo, paymentRepo, issuer, services.NewOrderWatcher())

	router := gin.New()
	handler := NewPaymentHandler(reconciler, nil)
	handler.RegisterCallbackRoutes(router)
	return router
}

func postCallback(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCallback_MalformedBody(t *testing.T) {
	router := setupCallbackRouter(t)

	w := postCallback(router, `{"Body": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":1`)
}

func TestCallback_MissingCheckoutRequestID(t *testing.T) {
	router := setupCallbackRouter(t)

	w := postCallback(router, `{"Body": {"stkCallback": {"ResultCode": 0, "ResultDesc": "ok"}}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_UnknownCorrelationIsAcknowledged(t *testing.T) {
	router := setupCallbackRouter(t)

	// An unknown id must still be acknowledged with ResultCode 0, or the
	// provider keeps retrying a callback we can never reconcile.
	w := postCallback(router, `{"Body": {"stkCallback": {
		"CheckoutRequestID": "ws_CO_never_seen",
		"ResultCode": 0,
		"ResultDesc": "The service request is processed successfully."}}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)
}

func TestConfirmManual_UnknownReference(t *testing.T) {
	router := setupCallbackRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/manual/MAN-UNKNOWN/confirm", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
