package models

import (
	"errors"
	"strings"
	"time"
)

// DiscountType represents how a coupon discounts an order total
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon represents a discount code scoped to an organizer
type Coupon struct {
	ID           int          `json:"id" db:"id"`
	Code         string       `json:"code" db:"code"`
	DiscountType DiscountType `json:"discount_type" db:"discount_type"`
	// Value is a percentage (0-100) for percentage coupons and an amount
	// in cents for fixed coupons.
	Value        int        `json:"value" db:"value"`
	UsageLimit   *int       `json:"usage_limit,omitempty" db:"usage_limit"`
	PerUserLimit *int       `json:"per_user_limit,omitempty" db:"per_user_limit"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	// EventIDs restricts the coupon to specific events; empty = all events.
	EventIDs  []int     `json:"event_ids,omitempty" db:"-"`
	UsedCount int       `json:"used_count" db:"used_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the coupon data
func (c *Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return errors.New("coupon code is required")
	}

	switch c.DiscountType {
	case DiscountPercentage:
		if c.Value <= 0 || c.Value > 100 {
			return errors.New("percentage discount must be between 1 and 100")
		}
	case DiscountFixed:
		if c.Value <= 0 {
			return errors.New("fixed discount must be greater than 0")
		}
	default:
		return errors.New("invalid discount type")
	}

	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return errors.New("usage limit must be greater than 0 when set")
	}

	return nil
}

// IsExpired returns true if the coupon is past its expiry timestamp
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// IsExhausted returns true if the usage limit has been reached
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// AppliesTo returns true if the coupon is valid for the given event
func (c *Coupon) AppliesTo(eventID int) bool {
	if len(c.EventIDs) == 0 {
		return true
	}
	for _, id := range c.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// DiscountFor computes the discount amount for an original total in cents.
// Percentage discounts are mathematically bounded by the total; fixed
// discounts are clamped so the discounted total never goes below zero.
func (c *Coupon) DiscountFor(originalTotal int) int {
	if originalTotal <= 0 {
		return 0
	}

	switch c.DiscountType {
	case DiscountPercentage:
		return originalTotal * c.Value / 100
	case DiscountFixed:
		if c.Value > originalTotal {
			return originalTotal
		}
		return c.Value
	}
	return 0
}

// IsFullDiscount returns true if applying the coupon to the given total
// yields a zero-amount order (the only case a zero total is permitted)
func (c *Coupon) IsFullDiscount(originalTotal int) bool {
	return c.DiscountFor(originalTotal) >= originalTotal
}
