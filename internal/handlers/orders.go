package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tikiti/internal/models"
	"tikiti/internal/services"
	"tikiti/pkg/logger"
)

// OrderReader reads orders for the API surface
type OrderReader interface {
	GetByID(id int) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByUser(userID int, limit, offset int) ([]*models.Order, error)
	GetByEvent(eventID int, limit, offset int) ([]*models.Order, error)
}

// OrderHandler handles order reads, payment initiation and the live
// status stream
type OrderHandler struct {
	orders  OrderReader
	gateway *services.PaymentGatewayService
	watcher *services.OrderWatcher
	logger  *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderReader, gateway *services.PaymentGatewayService, watcher *services.OrderWatcher) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		gateway: gateway,
		watcher: watcher,
		logger:  logger.WithComponent("order_handler"),
	}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/orders", h.ListMine)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/pay", h.Pay)
	r.GET("/orders/:id/stream", h.Stream)
	r.GET("/events/:id/orders", h.ListByEvent)
}

func (h *OrderHandler) orderID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

// GetOrder returns the order with items, status and, once completed, its
// tickets. Accepts either the numeric id or the ORD- order number, since
// the storefront shows buyers the latter.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	param := c.Param("id")

	var order *models.Order
	var err error
	if id, convErr := strconv.Atoi(param); convErr == nil && id > 0 {
		order, err = h.orders.GetByID(id)
	} else {
		order, err = h.orders.GetByOrderNumber(param)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderView(order))
}

// Pay initiates a payment attempt for a locked order
func (h *OrderHandler) Pay(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req services.InitiatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}
	if req.Method == "" {
		req.Method = models.PaymentMethodPushPayment
	}
	if !req.Method.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported payment method"})
		return
	}

	order, err := h.gateway.Initiate(c.Request.Context(), id, req)
	if err != nil {
		h.logger.Warn("payment initiation rejected",
			zap.Int("order_id", id),
			zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, orderView(order))
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// ListMine returns the authenticated buyer's order history
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID := c.GetInt("user_id")
	if userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit, offset := pagination(c)
	orders, err := h.orders.GetByUser(userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		views = append(views, orderView(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// ListByEvent returns an event's orders for back-office use
func (h *OrderHandler) ListByEvent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	limit, offset := pagination(c)
	orders, err := h.orders.GetByEvent(eventID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		views = append(views, orderView(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// Stream pushes order status changes to the client as server-sent events
// until the order reaches a terminal state or the client disconnects.
func (h *OrderHandler) Stream(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	updates, cancel := h.watcher.Subscribe(id)
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Send the current state first so the client never misses a terminal
	// transition that happened before it connected.
	c.SSEvent("status", orderView(order))
	c.Writer.Flush()
	if order.IsTerminal() {
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case update, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("status", orderView(update))
			return !update.IsTerminal()
		}
	})
}

// orderView is the API shape of an order
func orderView(order *models.Order) gin.H {
	view := gin.H{
		"id":                    order.ID,
		"order_number":          order.OrderNumber,
		"event_id":              order.EventID,
		"items":                 order.Items,
		"original_total_amount": order.OriginalTotalAmount,
		"total_amount":          order.TotalAmount,
		"status":                order.Status,
		"status_display":        order.GetStatusDisplayName(),
		"payment_status":        order.PaymentStatus,
		"created_at":            order.CreatedAt,
		"updated_at":            order.UpdatedAt,
	}
	if order.CouponCode != "" {
		view["coupon_code"] = order.CouponCode
		view["discount_amount"] = order.DiscountAmount
	}
	if order.FailureReason != "" {
		view["failure_reason"] = order.FailureReason
	}
	if order.SupersedesOrderID != 0 {
		view["supersedes_order_id"] = order.SupersedesOrderID
	}
	if len(order.Tickets) > 0 {
		view["tickets"] = order.Tickets
	}
	return view
}
