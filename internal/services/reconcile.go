package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tikiti/internal/models"
	"tikiti/pkg/logger"
)

// ReconcileOrderRepository interface for the order data operations
// reconciliation needs
type ReconcileOrderRepository interface {
	GetByID(id int) (*models.Order, error)
	GetByCheckoutRequestID(checkoutRequestID string) (*models.Order, error)
	MarkFailed(orderID int, paymentStatus models.PaymentStatus, reason string) error
}

// PaymentReconcileRepository interface for payment record updates
type PaymentReconcileRepository interface {
	GetByCheckoutRequestID(checkoutRequestID string) (*models.Payment, error)
	UpdateStatus(checkoutRequestID string, status models.PaymentStatus, resultDescription string) error
}

// ProviderResult is the outcome a provider callback reports for one
// payment attempt. ResultCode zero means the payer authorized the charge.
type ProviderResult struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDescription string
}

// ReconciliationService applies asynchronous provider outcomes to orders.
// Callbacks can arrive late, twice, or for orders already failed by the
// expiry worker; every path here is written to be safe to replay.
type ReconciliationService struct {
	orderRepo   ReconcileOrderRepository
	paymentRepo PaymentReconcileRepository
	issuer      OrderIssuer
	notifier    OrderNotifier
	logger      *zap.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	orderRepo ReconcileOrderRepository,
	paymentRepo PaymentReconcileRepository,
	issuer OrderIssuer,
	notifier OrderNotifier,
) *ReconciliationService {
	return &ReconciliationService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		issuer:      issuer,
		notifier:    notifier,
		logger:      logger.WithComponent("reconciliation"),
	}
}

// HandleProviderResult applies one provider callback. Unknown correlation
// ids are logged and swallowed so the provider stops retrying; everything
// else either completes the order and issues tickets, or fails it with
// the provider's description recorded verbatim.
func (s *ReconciliationService) HandleProviderResult(result ProviderResult) error {
	order, err := s.orderRepo.GetByCheckoutRequestID(result.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			s.logger.Warn("callback for unknown checkout request",
				zap.String("checkout_request_id", result.CheckoutRequestID))
			return nil
		}
		return err
	}

	if result.ResultCode == 0 {
		return s.reconcileSuccess(order, result)
	}
	return s.reconcileFailure(order, result)
}

func (s *ReconciliationService) reconcileSuccess(order *models.Order, result ProviderResult) error {
	if err := s.paymentRepo.UpdateStatus(result.CheckoutRequestID,
		models.PaymentStatusCompleted, result.ResultDescription); err != nil {
		s.logger.Error("failed to record payment success",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.Error(err))
	}

	completed, err := s.issuer.Issue(order.ID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyIssued) {
			// Re-delivered callback; the first delivery already issued.
			s.logger.Info("duplicate success callback ignored",
				zap.Int("order_id", order.ID),
				zap.String("checkout_request_id", result.CheckoutRequestID))
			return nil
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			// The expiry worker got there first. The payer was charged but
			// the order is already failed; surface loudly for support.
			s.logger.Error("success callback for terminal order",
				zap.Int("order_id", order.ID),
				zap.String("status", string(order.Status)),
				zap.String("checkout_request_id", result.CheckoutRequestID))
			return nil
		}
		return fmt.Errorf("failed to issue tickets: %w", err)
	}

	s.logger.Info("payment reconciled",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("checkout_request_id", result.CheckoutRequestID))

	s.notifier.Publish(completed)
	return nil
}

func (s *ReconciliationService) reconcileFailure(order *models.Order, result ProviderResult) error {
	if err := s.paymentRepo.UpdateStatus(result.CheckoutRequestID,
		models.PaymentStatusFailed, result.ResultDescription); err != nil {
		s.logger.Error("failed to record payment failure",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.Error(err))
	}

	err := s.orderRepo.MarkFailed(order.ID, models.PaymentStatusFailed, result.ResultDescription)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// Already terminal; a late or duplicate failure signal is a no-op.
			return nil
		}
		return err
	}

	s.logger.Info("payment failure reconciled",
		zap.Int("order_id", order.ID),
		zap.Int("result_code", result.ResultCode),
		zap.String("result_description", result.ResultDescription))

	if failed, err := s.orderRepo.GetByID(order.ID); err == nil {
		s.notifier.Publish(failed)
	}
	return nil
}

// ConfirmManual marks a manual bank-transfer order as paid once the
// back office has sighted the funds. Idempotent the same way a success
// callback is.
func (s *ReconciliationService) ConfirmManual(reference string) (*models.Order, error) {
	order, err := s.orderRepo.GetByCheckoutRequestID(reference)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderPendingManual {
		if order.IsCompleted() {
			return nil, models.ErrAlreadyIssued
		}
		return nil, models.ErrInvalidTransition
	}

	if err := s.paymentRepo.UpdateStatus(reference,
		models.PaymentStatusCompleted, "manual transfer confirmed"); err != nil {
		s.logger.Error("failed to record manual confirmation",
			zap.String("reference", reference),
			zap.Error(err))
	}

	completed, err := s.issuer.Issue(order.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual transfer confirmed",
		zap.Int("order_id", order.ID),
		zap.String("reference", reference))

	s.notifier.Publish(completed)
	return completed, nil
}
