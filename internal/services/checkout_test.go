package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tikiti/internal/models"
)

func TestCheckoutService_Checkout(t *testing.T) {
	env := newTestEnv(t)

	order := env.checkoutRegular(t, 2)

	assert.Equal(t, models.OrderPendingPaymentInitiation, order.Status)
	assert.Equal(t, 100000, order.OriginalTotalAmount)
	assert.Equal(t, 100000, order.TotalAmount)
	assert.Equal(t, "254712345678", order.CustomerPhone)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Regular", order.Items[0].TicketName)
}

func TestCheckoutService_ClientPricesIgnored(t *testing.T) {
	env := newTestEnv(t)

	// The client claims the VIP ticket costs one shilling.
	order, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items: []models.CartItem{
			{TicketTypeID: env.vipID, TicketName: "Cheap VIP", UnitPrice: 100, Quantity: 1},
		},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 250000, order.TotalAmount, "catalog price must win over client price")
	assert.Equal(t, "VIP", order.Items[0].TicketName)
	assert.Equal(t, 250000, order.Items[0].UnitPrice)
}

func TestCheckoutService_CouponDiscount(t *testing.T) {
	env := newTestEnv(t)
	env.seedCoupon(t, &models.Coupon{
		Code: "SAVE10", DiscountType: models.DiscountPercentage, Value: 10,
	})

	// Two Regular tickets at KES 500 with SAVE10 comes to KES 900.
	order, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items: []models.CartItem{
			{TicketTypeID: env.regularID, Quantity: 2},
		},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
		CouponCode: "save10",
	})
	require.NoError(t, err)

	assert.Equal(t, 100000, order.OriginalTotalAmount)
	assert.Equal(t, 10000, order.DiscountAmount)
	assert.Equal(t, 90000, order.TotalAmount)
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.Equal(t, order.OriginalTotalAmount-order.DiscountAmount, order.TotalAmount)
}

func TestCheckoutService_CouponRejections(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-time.Hour)
	env.seedCoupon(t, &models.Coupon{
		Code: "EXPIRED", DiscountType: models.DiscountPercentage, Value: 10, ExpiresAt: &past,
	})
	env.seedCoupon(t, &models.Coupon{
		Code: "OTHEREVENT", DiscountType: models.DiscountPercentage, Value: 10, EventIDs: []int{env.eventID + 100},
	})

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"unknown code", "NOPE", models.ErrCouponNotFound},
		{"expired code", "EXPIRED", models.ErrCouponExpired},
		{"wrong event", "OTHEREVENT", models.ErrCouponNotApplicable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.Checkout(CheckoutRequest{
				EventID: env.eventID,
				Items:   []models.CartItem{{TicketTypeID: env.regularID, Quantity: 1}},
				Contact: models.CustomerContact{
					Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
				},
				CouponCode: tt.code,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckoutService_FullDiscountAllowsZeroTotal(t *testing.T) {
	env := newTestEnv(t)
	env.seedCoupon(t, &models.Coupon{
		Code: "FREE100", DiscountType: models.DiscountPercentage, Value: 100,
	})

	order, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items:   []models.CartItem{{TicketTypeID: env.regularID, Quantity: 1}},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
		CouponCode: "FREE100",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, order.TotalAmount)
	assert.Equal(t, 50000, order.DiscountAmount)
}

func TestCheckoutService_SoldOutFailsOrder(t *testing.T) {
	env := newTestEnv(t)

	// Drain the VIP allocation.
	first := env.mustCheckoutVIP(t, 3)
	assert.Equal(t, models.OrderPendingPaymentInitiation, first.Status)

	_, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items:   []models.CartItem{{TicketTypeID: env.vipID, Quantity: 1}},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
	})
	require.Error(t, err)

	var soldOut *models.SoldOutError
	require.True(t, errors.As(err, &soldOut))
	assert.Equal(t, 0, soldOut.Remaining)
}

func (env *testEnv) mustCheckoutVIP(t *testing.T, quantity int) *models.Order {
	t.Helper()
	order, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items:   []models.CartItem{{TicketTypeID: env.vipID, Quantity: quantity}},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
	})
	if err != nil {
		t.Fatalf("vip checkout failed: %v", err)
	}
	return order
}

func TestCheckoutService_InvalidPhone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items:   []models.CartItem{{TicketTypeID: env.regularID, Quantity: 1}},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "12345",
		},
	})
	assert.ErrorIs(t, err, models.ErrInvalidPhoneNumber)
}

func TestCheckoutService_UnknownEvent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkout.Checkout(CheckoutRequest{
		EventID: 9999,
		Items:   []models.CartItem{{TicketTypeID: env.regularID, Quantity: 1}},
		Contact: models.CustomerContact{
			Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678",
		},
	})
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}
