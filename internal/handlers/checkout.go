package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tikiti/internal/services"
	"tikiti/pkg/logger"
)

// CheckoutHandler handles checkout requests
type CheckoutHandler struct {
	checkout *services.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		logger:   logger.WithComponent("checkout_handler"),
	}
}

// RegisterRoutes registers the checkout routes
func (h *CheckoutHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/checkout", h.Checkout)
}

// Checkout creates an order from a cart and locks its totals. The
// response is the order in pending_payment_initiation, ready for the
// payment step.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req services.CheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	req.UserID = currentUserID(c)
	if req.UserID == 0 {
		req.GuestSessionID = guestSessionID(c)
	}

	order, err := h.checkout.Checkout(req)
	if err != nil {
		h.logger.Warn("checkout rejected",
			zap.Int("event_id", req.EventID),
			zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// currentUserID reads the authenticated user id set by upstream auth
// middleware; zero means guest checkout.
func currentUserID(c *gin.Context) int {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(int); ok {
			return id
		}
	}
	return 0
}

// guestSessionID identifies an anonymous shopper across requests.
func guestSessionID(c *gin.Context) string {
	if sid := c.GetHeader("X-Guest-Session"); sid != "" {
		return sid
	}
	if sid, err := c.Cookie("guest_session"); err == nil {
		return sid
	}
	return ""
}
