package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tikiti/internal/models"
	"tikiti/pkg/logger"
)

// ExpiryOrderRepository interface for the order data operations the
// expiry worker needs
type ExpiryOrderRepository interface {
	GetByID(id int) (*models.Order, error)
	GetExpiredOrders(ceiling time.Duration) ([]*models.Order, error)
	MarkFailed(orderID int, paymentStatus models.PaymentStatus, reason string) error
}

// ExpiryWorker enforces the payment ceiling: an in-flight order that has
// not heard from the provider within the ceiling is failed with
// payment_timeout and its reserved inventory is released. A callback that
// races the sweep loses cleanly because failure is a guarded transition.
type ExpiryWorker struct {
	orderRepo ExpiryOrderRepository
	notifier  OrderNotifier
	ceiling   time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(orderRepo ExpiryOrderRepository, notifier OrderNotifier, ceiling, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		orderRepo: orderRepo,
		notifier:  notifier,
		ceiling:   ceiling,
		interval:  interval,
		logger:    logger.WithComponent("expiry_worker"),
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry worker started",
		zap.Duration("ceiling", w.ceiling),
		zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep fails every in-flight order that has outlived the payment ceiling.
func (w *ExpiryWorker) Sweep() {
	expired, err := w.orderRepo.GetExpiredOrders(w.ceiling)
	if err != nil {
		w.logger.Error("failed to scan for expired orders", zap.Error(err))
		return
	}

	for _, order := range expired {
		err := w.orderRepo.MarkFailed(order.ID, models.PaymentStatusTimeout,
			"payment confirmation window elapsed")
		if err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				// A callback completed or failed the order between the scan
				// and this update.
				continue
			}
			w.logger.Error("failed to expire order",
				zap.Int("order_id", order.ID),
				zap.Error(err))
			continue
		}

		w.logger.Info("order expired",
			zap.Int("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.String("previous_status", string(order.Status)))

		if failed, err := w.orderRepo.GetByID(order.ID); err == nil {
			w.notifier.Publish(failed)
		}
	}
}
