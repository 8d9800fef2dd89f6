package services

import (
	"fmt"
	"strings"
	"time"

	"tikiti/internal/models"
)

// CouponRepository interface for coupon data operations
type CouponRepository interface {
	GetByCode(code string) (*models.Coupon, error)
}

// CouponUsageCounter counts a user's prior completed redemptions of a coupon
type CouponUsageCounter interface {
	CountCompletedWithCoupon(couponCode string, userID int) (int, error)
}

// CouponService resolves coupon codes against an order at total-locking
// time. Resolution here is advisory; the usage limit is enforced again
// atomically when the order completes.
type CouponService struct {
	couponRepo   CouponRepository
	usageCounter CouponUsageCounter
}

// NewCouponService creates a new coupon service
func NewCouponService(couponRepo CouponRepository, usageCounter CouponUsageCounter) *CouponService {
	return &CouponService{
		couponRepo:   couponRepo,
		usageCounter: usageCounter,
	}
}

// Resolve validates a coupon code for an event and computes the discount
// for the given original total in cents. Codes are case-insensitive.
func (s *CouponService) Resolve(code string, eventID int, userID int, originalTotal int) (*models.Coupon, int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, 0, models.ErrCouponNotFound
	}

	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, 0, err
	}

	if coupon.IsExpired(time.Now()) {
		return nil, 0, models.ErrCouponExpired
	}

	if coupon.IsExhausted() {
		return nil, 0, models.ErrCouponExhausted
	}

	if !coupon.AppliesTo(eventID) {
		return nil, 0, models.ErrCouponNotApplicable
	}

	// Per-user limits only apply to signed-in shoppers; guests cannot be
	// tracked across orders.
	if coupon.PerUserLimit != nil && userID > 0 {
		used, err := s.usageCounter.CountCompletedWithCoupon(coupon.Code, userID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to check coupon usage: %w", err)
		}
		if used >= *coupon.PerUserLimit {
			return nil, 0, models.ErrCouponExhausted
		}
	}

	return coupon, coupon.DiscountFor(originalTotal), nil
}
