package models

import "time"

// PaymentMethod selects how an order is paid
type PaymentMethod string

const (
	PaymentMethodPushPayment    PaymentMethod = "push_payment"
	PaymentMethodManualTransfer PaymentMethod = "manual_transfer"
)

// IsValid reports whether the payment method is supported
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodPushPayment || m == PaymentMethodManualTransfer
}

// Payment is the transaction record keyed by the provider correlation id.
// It is written by the payment gateway on initiation and updated by the
// reconciliation listener when the provider callback arrives; the order
// record is the other, independently-updated signal.
type Payment struct {
	CheckoutRequestID string        `json:"checkout_request_id" db:"checkout_request_id"`
	OrderID           int           `json:"order_id" db:"order_id"`
	Method            PaymentMethod `json:"method" db:"method"`
	Amount            int           `json:"amount" db:"amount"` // in cents
	Phone             string        `json:"phone,omitempty" db:"phone"`
	Status            PaymentStatus `json:"status" db:"status"`
	ResultDescription string        `json:"result_description,omitempty" db:"result_description"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// IsFinal reports whether the payment has a terminal provider outcome
func (p *Payment) IsFinal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusSTKPushFailed,
		PaymentStatusTimeout, PaymentStatusInternalError:
		return true
	}
	return false
}
