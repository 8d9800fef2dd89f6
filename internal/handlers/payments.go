package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tikiti/internal/services"
	"tikiti/pkg/logger"
)

// PaymentHandler handles the provider callback, back-office manual
// confirmations and gate-scan redemptions
type PaymentHandler struct {
	reconciler *services.ReconciliationService
	redemption *services.RedemptionService
	logger     *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(reconciler *services.ReconciliationService, redemption *services.RedemptionService) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		redemption: redemption,
		logger:     logger.WithComponent("payment_handler"),
	}
}

// RegisterCallbackRoutes registers the provider-facing routes. These sit
// outside the /api group because the provider addresses them directly.
func (h *PaymentHandler) RegisterCallbackRoutes(r gin.IRouter) {
	r.POST("/payments/callback", h.Callback)
	r.POST("/payments/manual/:reference/confirm", h.ConfirmManual)
}

// RegisterRoutes registers the API-facing payment routes
func (h *PaymentHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/tickets/redeem", h.Redeem)
}

// stkCallbackBody is the provider's callback envelope
type stkCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// Callback receives the asynchronous push-payment outcome. The provider
// retries on non-2xx responses, so everything reconcilable is acknowledged
// with 200 even when the order side rejects the result.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var body stkCallbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("malformed provider callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
		return
	}

	cb := body.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn("provider callback without checkout request id")
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
		return
	}

	err := h.reconciler.HandleProviderResult(services.ProviderResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
	})
	if err != nil {
		h.logger.Error("failed to reconcile provider callback",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ResultCode": 1, "ResultDesc": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// ConfirmManual marks a pending manual-transfer order as paid
func (h *PaymentHandler) ConfirmManual(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	order, err := h.reconciler.ConfirmManual(reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderView(order))
}

// redeemRequest carries a scannable ticket token
type redeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// Redeem verifies a ticket token and redeems the ticket
func (h *PaymentHandler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	ticket, err := h.redemption.Redeem(req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}
