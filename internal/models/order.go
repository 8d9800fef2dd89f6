package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	// OrderPendingCreation is set when the cart snapshot is first persisted.
	OrderPendingCreation OrderStatus = "pending_creation"
	// OrderPendingPaymentInitiation is set once totals have been recomputed
	// server-side and inventory has been decremented.
	OrderPendingPaymentInitiation OrderStatus = "pending_payment_initiation"
	// OrderProcessing is set when a payment method has been invoked.
	OrderProcessing OrderStatus = "processing"
	// OrderSTKPushSent is set once the push-payment provider acknowledged.
	OrderSTKPushSent OrderStatus = "stk_push_sent"
	// OrderPendingManual is set when the manual bank-transfer path is chosen.
	OrderPendingManual OrderStatus = "pending_manual"
	// OrderCompleted and OrderFailed are terminal.
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// PaymentStatus carries the fine-grained payment outcome on the order
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusCompleted     PaymentStatus = "completed"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusSTKPushFailed PaymentStatus = "stk_push_failed"
	PaymentStatusTimeout       PaymentStatus = "payment_timeout"
	PaymentStatusInternalError PaymentStatus = "internal_error"
)

// orderTransitions defines the allowed status transitions. Terminal states
// have no outgoing edges; OrderFailed is additionally reachable from every
// non-terminal state (internal error, timeout, duplicate-guard rejection).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendingCreation:          {OrderPendingPaymentInitiation},
	OrderPendingPaymentInitiation: {OrderProcessing},
	OrderProcessing:               {OrderSTKPushSent, OrderPendingManual, OrderCompleted},
	OrderSTKPushSent:              {OrderCompleted},
	OrderPendingManual:            {OrderCompleted},
	OrderCompleted:                {},
	OrderFailed:                   {},
}

// IsValid reports whether the status is one of the known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether the status permits no further mutation
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderFailed
}

// IsInFlight reports whether a payment attempt is outstanding for the status
func (s OrderStatus) IsInFlight() bool {
	return s == OrderProcessing || s == OrderSTKPushSent || s == OrderPendingManual
}

// CanTransitionTo checks whether the target status is reachable in one step
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderFailed {
		return !s.IsTerminal()
	}

	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// OrderItem represents one line item on an order
type OrderItem struct {
	ID           int    `json:"id" db:"id"`
	OrderID      int    `json:"order_id" db:"order_id"`
	TicketTypeID int    `json:"ticket_type_id" db:"ticket_type_id"`
	TicketName   string `json:"ticket_name" db:"ticket_name"`
	UnitPrice    int    `json:"unit_price" db:"unit_price"` // in cents
	Quantity     int    `json:"quantity" db:"quantity"`
}

// Order represents one checkout attempt. A retried payment is a brand-new
// order linked back through SupersedesOrderID, never a mutation of the
// failed one.
type Order struct {
	ID                  int           `json:"id" db:"id"`
	OrderNumber         string        `json:"order_number" db:"order_number"`
	UserID              int           `json:"user_id" db:"user_id"` // 0 for guest checkout
	GuestSessionID      string        `json:"guest_session_id,omitempty" db:"guest_session_id"`
	EventID             int           `json:"event_id" db:"event_id"`
	CustomerName        string        `json:"customer_name" db:"customer_name"`
	CustomerEmail       string        `json:"customer_email" db:"customer_email"`
	CustomerPhone       string        `json:"customer_phone" db:"customer_phone"`
	Items               []OrderItem   `json:"items" db:"-"`
	OriginalTotalAmount int           `json:"original_total_amount" db:"original_total_amount"` // in cents
	TotalAmount         int           `json:"total_amount" db:"total_amount"`                   // in cents, post-discount
	CouponCode          string        `json:"coupon_code,omitempty" db:"coupon_code"`
	DiscountAmount      int           `json:"discount_amount" db:"discount_amount"` // in cents
	Status              OrderStatus   `json:"status" db:"status"`
	PaymentStatus       PaymentStatus `json:"payment_status" db:"payment_status"`
	FailureReason       string        `json:"failure_reason,omitempty" db:"failure_reason"`
	CheckoutRequestID   string        `json:"checkout_request_id,omitempty" db:"checkout_request_id"`
	SupersedesOrderID   int           `json:"supersedes_order_id,omitempty" db:"supersedes_order_id"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`

	// Tickets is populated once the order completes
	Tickets []*Ticket `json:"tickets,omitempty" db:"-"`
}

// CustomerContact holds the payer-supplied contact details for an order
type CustomerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

var (
	// Order number format: ORD-YYYYMMDD-XXXXXX (e.g., ORD-20240101-123456)
	orderNumberRegex = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)
	// Email validation regex for orders
	orderEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Kenyan MSISDN after normalization: 2547XXXXXXXX or 2541XXXXXXXX
	msisdnRegex = regexp.MustCompile(`^254(7|1)\d{8}$`)
)

// Validate validates the customer contact details
func (c *CustomerContact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("customer name is required")
	}

	if len(c.Name) > 255 {
		return errors.New("customer name must be less than 255 characters")
	}

	if c.Email == "" {
		return errors.New("customer email is required")
	}

	if len(c.Email) > 255 {
		return errors.New("customer email must be less than 255 characters")
	}

	if !orderEmailRegex.MatchString(c.Email) {
		return errors.New("customer email format is invalid")
	}

	return nil
}

// NormalizePhone converts a Kenyan phone number to the canonical
// international format (2547XXXXXXXX). Accepted inputs: 07XXXXXXXX,
// 01XXXXXXXX, +2547XXXXXXXX, 2547XXXXXXXX, with optional spaces or dashes.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	cleaned = strings.TrimPrefix(cleaned, "+")

	switch {
	case strings.HasPrefix(cleaned, "254"):
		// already international
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7") || strings.HasPrefix(cleaned, "1"):
		if len(cleaned) == 9 {
			cleaned = "254" + cleaned
		}
	}

	if !msisdnRegex.MatchString(cleaned) {
		return "", ErrInvalidPhoneNumber
	}

	return cleaned, nil
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	// Generate a 6-digit random number using crypto/rand for better uniqueness
	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		timestamp := now.UnixNano()
		randomPart := timestamp % 1000000
		return fmt.Sprintf("ORD-%s-%06d", dateStr, randomPart)
	}

	return fmt.Sprintf("ORD-%s-%06d", dateStr, randomNum.Int64())
}

// ValidateOrderNumber checks the ORD-YYYYMMDD-XXXXXX format
func ValidateOrderNumber(orderNumber string) error {
	if orderNumber == "" {
		return errors.New("order number is required")
	}

	if !orderNumberRegex.MatchString(orderNumber) {
		return errors.New("order number format is invalid")
	}

	return nil
}

// IsCompleted returns true if the order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderCompleted
}

// IsFailed returns true if the order is failed
func (o *Order) IsFailed() bool {
	return o.Status == OrderFailed
}

// IsTerminal returns true if the order permits no further mutation
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// IsInFlight returns true if a payment attempt is outstanding
func (o *Order) IsInFlight() bool {
	return o.Status.IsInFlight()
}

// TotalQuantity returns the number of individual tickets on the order
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// TotalAmountInCurrency returns the total amount in KES as a float
func (o *Order) TotalAmountInCurrency() float64 {
	return float64(o.TotalAmount) / 100.0
}

// IsExpired returns true if an in-flight order has outlived the payment
// ceiling without a provider confirmation
func (o *Order) IsExpired(ceiling time.Duration) bool {
	if !o.IsInFlight() {
		return false
	}

	return time.Since(o.UpdatedAt) > ceiling
}

// GetStatusDisplayName returns a human-readable status name
func (o *Order) GetStatusDisplayName() string {
	switch o.Status {
	case OrderPendingCreation:
		return "Preparing Order"
	case OrderPendingPaymentInitiation:
		return "Awaiting Payment"
	case OrderProcessing:
		return "Processing Payment"
	case OrderSTKPushSent:
		return "Confirm on Your Phone"
	case OrderPendingManual:
		return "Awaiting Bank Transfer"
	case OrderCompleted:
		return "Completed"
	case OrderFailed:
		return "Failed"
	default:
		return string(o.Status)
	}
}
