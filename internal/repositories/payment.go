package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tikiti/internal/models"
)

// PaymentRepository handles payment transaction records, keyed by the
// provider correlation id
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a new payment record for an initiation attempt
func (r *PaymentRepository) Create(payment *models.Payment) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO payments (checkout_request_id, order_id, method, amount,
			phone, status, result_description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.CheckoutRequestID, payment.OrderID, payment.Method,
		payment.Amount, payment.Phone, payment.Status,
		payment.ResultDescription, now, now)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

// GetByCheckoutRequestID retrieves a payment by provider correlation id
func (r *PaymentRepository) GetByCheckoutRequestID(checkoutRequestID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := r.db.QueryRow(`
		SELECT checkout_request_id, order_id, method, amount, phone,
			status, result_description, created_at, updated_at
		FROM payments
		WHERE checkout_request_id = ?`, checkoutRequestID).Scan(
		&payment.CheckoutRequestID,
		&payment.OrderID,
		&payment.Method,
		&payment.Amount,
		&payment.Phone,
		&payment.Status,
		&payment.ResultDescription,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// UpdateStatus records the provider-reported outcome on the payment record.
// A payment that already reached a terminal status is never regressed.
func (r *PaymentRepository) UpdateStatus(checkoutRequestID string, status models.PaymentStatus, resultDescription string) error {
	result, err := r.db.Exec(`
		UPDATE payments
		SET status = ?, result_description = ?, updated_at = ?
		WHERE checkout_request_id = ? AND status = ?`,
		status, resultDescription, time.Now(),
		checkoutRequestID, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetByCheckoutRequestID(checkoutRequestID)
		if err != nil {
			return err
		}
		if existing.IsFinal() {
			// Re-delivered callback; nothing to do.
			return nil
		}
		return fmt.Errorf("failed to update payment %s", checkoutRequestID)
	}

	return nil
}
