package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tikiti/internal/cache"
	"tikiti/internal/models"
	"tikiti/pkg/logger"
)

// PaymentOrderRepository interface for the order data operations the
// gateway needs
type PaymentOrderRepository interface {
	GetByID(id int) (*models.Order, error)
	MarkProcessing(orderID int) error
	MarkSTKPushSent(orderID int, checkoutRequestID string) error
	MarkPendingManual(orderID int, reference string) error
	MarkFailed(orderID int, paymentStatus models.PaymentStatus, reason string) error
}

// PaymentRecorder persists payment transaction records
type PaymentRecorder interface {
	Create(payment *models.Payment) error
}

// OrderIssuer completes an order and mints its tickets
type OrderIssuer interface {
	Issue(orderID int) (*models.Order, error)
}

// InitiatePaymentRequest selects how an order should be paid. Phone may be
// in any accepted local format; it is normalized before the provider sees
// it.
type InitiatePaymentRequest struct {
	Method models.PaymentMethod `json:"method"`
	Phone  string               `json:"phone,omitempty"`
}

// PaymentGatewayService drives payment initiation for locked orders. Each
// order gets at most one initiation: the in-flight guard and the guarded
// processing transition together reject duplicates before the provider is
// contacted, so a shopper double-tapping Pay cannot be charged twice.
type PaymentGatewayService struct {
	orderRepo   PaymentOrderRepository
	paymentRepo PaymentRecorder
	pusher      STKPusher
	issuer      OrderIssuer
	guard       cache.InFlightGuard
	notifier    OrderNotifier
	ceiling     time.Duration
	logger      *zap.Logger
}

// NewPaymentGatewayService creates a new payment gateway service
func NewPaymentGatewayService(
	orderRepo PaymentOrderRepository,
	paymentRepo PaymentRecorder,
	pusher STKPusher,
	issuer OrderIssuer,
	guard cache.InFlightGuard,
	notifier OrderNotifier,
	ceiling time.Duration,
) *PaymentGatewayService {
	return &PaymentGatewayService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		pusher:      pusher,
		issuer:      issuer,
		guard:       guard,
		notifier:    notifier,
		ceiling:     ceiling,
		logger:      logger.WithComponent("payment_gateway"),
	}
}

// Initiate starts a payment attempt for an order in
// pending_payment_initiation. Zero-amount orders (full-discount coupons)
// skip the provider entirely and complete immediately.
func (s *PaymentGatewayService) Initiate(ctx context.Context, orderID int, req InitiatePaymentRequest) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderPendingPaymentInitiation {
		if order.IsInFlight() || order.IsCompleted() {
			return nil, models.ErrDuplicatePaymentAttempt
		}
		return nil, models.ErrInvalidTransition
	}

	acquired, err := s.guard.Acquire(ctx, orderID, s.ceiling)
	if err != nil {
		return nil, fmt.Errorf("failed to check in-flight claim: %w", err)
	}
	if !acquired {
		return nil, models.ErrDuplicatePaymentAttempt
	}

	if order.TotalAmount == 0 {
		return s.completeFreeOrder(ctx, order)
	}

	switch req.Method {
	case models.PaymentMethodPushPayment:
		return s.initiatePush(ctx, order, req.Phone)
	case models.PaymentMethodManualTransfer:
		return s.initiateManual(ctx, order)
	default:
		s.releaseGuard(ctx, orderID)
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}
}

func (s *PaymentGatewayService) initiatePush(ctx context.Context, order *models.Order, phone string) (*models.Order, error) {
	if strings.TrimSpace(phone) == "" {
		phone = order.CustomerPhone
	}
	normalized, err := models.NormalizePhone(phone)
	if err != nil {
		s.releaseGuard(ctx, order.ID)
		return nil, err
	}

	if err := s.orderRepo.MarkProcessing(order.ID); err != nil {
		s.releaseGuard(ctx, order.ID)
		return nil, err
	}

	resp, err := s.pusher.STKPush(ctx, STKPushRequest{
		Phone:            normalized,
		Amount:           order.TotalAmount,
		AccountReference: order.OrderNumber,
		Description:      fmt.Sprintf("Tickets %s", order.OrderNumber),
	})
	if err != nil {
		// The provider rejected the push synchronously; record its message
		// verbatim so support can see what the provider actually said.
		s.failOrder(order.ID, models.PaymentStatusSTKPushFailed, err.Error())
		return nil, fmt.Errorf("stk push failed: %w", err)
	}

	if err := s.orderRepo.MarkSTKPushSent(order.ID, resp.CheckoutRequestID); err != nil {
		s.failOrder(order.ID, models.PaymentStatusInternalError, err.Error())
		return nil, err
	}

	if err := s.paymentRepo.Create(&models.Payment{
		CheckoutRequestID: resp.CheckoutRequestID,
		OrderID:           order.ID,
		Method:            models.PaymentMethodPushPayment,
		Amount:            order.TotalAmount,
		Phone:             normalized,
		Status:            models.PaymentStatusPending,
	}); err != nil {
		s.failOrder(order.ID, models.PaymentStatusInternalError, err.Error())
		return nil, err
	}

	s.logger.Info("stk push sent",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("checkout_request_id", resp.CheckoutRequestID))

	return s.refresh(order.ID)
}

func (s *PaymentGatewayService) initiateManual(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := s.orderRepo.MarkProcessing(order.ID); err != nil {
		s.releaseGuard(ctx, order.ID)
		return nil, err
	}

	reference := "MAN-" + strings.ToUpper(uuid.NewString()[:8])

	if err := s.orderRepo.MarkPendingManual(order.ID, reference); err != nil {
		s.failOrder(order.ID, models.PaymentStatusInternalError, err.Error())
		return nil, err
	}

	if err := s.paymentRepo.Create(&models.Payment{
		CheckoutRequestID: reference,
		OrderID:           order.ID,
		Method:            models.PaymentMethodManualTransfer,
		Amount:            order.TotalAmount,
		Status:            models.PaymentStatusPending,
	}); err != nil {
		s.failOrder(order.ID, models.PaymentStatusInternalError, err.Error())
		return nil, err
	}

	s.logger.Info("manual transfer initiated",
		zap.Int("order_id", order.ID),
		zap.String("reference", reference))

	return s.refresh(order.ID)
}

func (s *PaymentGatewayService) completeFreeOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := s.orderRepo.MarkProcessing(order.ID); err != nil {
		s.releaseGuard(ctx, order.ID)
		return nil, err
	}

	completed, err := s.issuer.Issue(order.ID)
	if err != nil {
		s.failOrder(order.ID, models.PaymentStatusInternalError, err.Error())
		return nil, err
	}

	s.logger.Info("zero-amount order completed",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))

	s.notifier.Publish(completed)
	return completed, nil
}

// failOrder fails the order and broadcasts the new state. The in-flight
// claim is left to its TTL; the order is terminal either way.
func (s *PaymentGatewayService) failOrder(orderID int, status models.PaymentStatus, reason string) {
	if err := s.orderRepo.MarkFailed(orderID, status, reason); err != nil {
		s.logger.Error("failed to mark order failed",
			zap.Int("order_id", orderID),
			zap.Error(err))
		return
	}

	if order, err := s.orderRepo.GetByID(orderID); err == nil {
		s.notifier.Publish(order)
	}
}

func (s *PaymentGatewayService) releaseGuard(ctx context.Context, orderID int) {
	if err := s.guard.Release(ctx, orderID); err != nil {
		s.logger.Warn("failed to release in-flight claim",
			zap.Int("order_id", orderID),
			zap.Error(err))
	}
}

func (s *PaymentGatewayService) refresh(orderID int) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(order)
	return order, nil
}
