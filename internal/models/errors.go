package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrTicketNotFound  = errors.New("ticket not found")

	ErrEmptyCart      = errors.New("cart is empty")
	ErrMixedEventCart = errors.New("cart references more than one event")

	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponExhausted     = errors.New("coupon usage limit reached")
	ErrCouponNotApplicable = errors.New("coupon is not valid for this event")

	ErrInvalidAmount      = errors.New("order total must be greater than zero")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	ErrDuplicatePaymentAttempt = errors.New("payment already in progress for this order")
	ErrAlreadyIssued           = errors.New("tickets already issued for this order")
	ErrTicketRedeemed          = errors.New("ticket has already been redeemed")
	ErrInvalidTicketToken      = errors.New("invalid ticket token")

	ErrInvalidTransition = errors.New("invalid order status transition")
)

// SoldOutError is returned when locking totals would oversell a ticket type.
type SoldOutError struct {
	TicketTypeID   int
	TicketTypeName string
	Requested      int
	Remaining      int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("ticket type %q is sold out (requested: %d, remaining: %d)",
		e.TicketTypeName, e.Requested, e.Remaining)
}
