package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tikiti/internal/models"
	"tikiti/internal/repositories"
	"tikiti/pkg/logger"
)

// CheckoutOrderRepository interface for the order data operations checkout needs
type CheckoutOrderRepository interface {
	Create(params repositories.OrderCreateParams) (*models.Order, error)
	GetByID(id int) (*models.Order, error)
	LockTotals(orderID int, locked repositories.LockedTotals) (*models.Order, error)
	MarkFailed(orderID int, paymentStatus models.PaymentStatus, reason string) error
}

// CatalogRepository interface for event and ticket type reads
type CatalogRepository interface {
	GetEventByID(id int) (*models.Event, error)
	GetTicketTypesByIDs(ids []int) (map[int]*models.TicketType, error)
}

// CouponResolver resolves a coupon code into a discount for an order
type CouponResolver interface {
	Resolve(code string, eventID int, userID int, originalTotal int) (*models.Coupon, int, error)
}

// CheckoutRequest is the input to a checkout: one event, the shopper's
// ticket selections, contact details and an optional coupon code.
type CheckoutRequest struct {
	EventID           int                `json:"event_id"`
	Items             []models.CartItem  `json:"items"`
	Contact           models.CustomerContact `json:"contact"`
	CouponCode        string             `json:"coupon_code,omitempty"`
	UserID            int                `json:"-"`
	GuestSessionID    string             `json:"-"`
	SupersedesOrderID int                `json:"supersedes_order_id,omitempty"`
}

// CheckoutService turns a cart into an order with locked, server-computed
// totals. Client-supplied prices are treated as display hints only; every
// amount is recomputed from the catalog before anything is charged.
type CheckoutService struct {
	orderRepo   CheckoutOrderRepository
	catalogRepo CatalogRepository
	coupons     CouponResolver
	logger      *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(orderRepo CheckoutOrderRepository, catalogRepo CatalogRepository, coupons CouponResolver) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		coupons:     coupons,
		logger:      logger.WithComponent("checkout"),
	}
}

// BuildSnapshot validates the selections against the catalog and produces
// the cart snapshot the order will be created from. Every selected ticket
// type must exist and belong to the requested event.
func (s *CheckoutService) BuildSnapshot(eventID int, items []models.CartItem) (*models.CartSnapshot, error) {
	if _, err := s.catalogRepo.GetEventByID(eventID); err != nil {
		return nil, err
	}

	snapshot, err := models.NewCartSnapshot(eventID, items)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		ids = append(ids, item.TicketTypeID)
	}

	types, err := s.catalogRepo.GetTicketTypesByIDs(ids)
	if err != nil {
		return nil, err
	}

	// Rebuild the snapshot with catalog names and prices so the order
	// records what the shop sold, not what the client claimed.
	rebuilt := make([]models.CartItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		tt, ok := types[item.TicketTypeID]
		if !ok {
			return nil, models.ErrTicketNotFound
		}
		if tt.EventID != eventID {
			return nil, models.ErrMixedEventCart
		}
		rebuilt = append(rebuilt, models.CartItem{
			TicketTypeID: tt.ID,
			TicketName:   tt.Name,
			UnitPrice:    tt.Price,
			Quantity:     item.Quantity,
		})
	}

	return models.NewCartSnapshot(eventID, rebuilt)
}

// Checkout runs the full checkout: build the snapshot, persist the order
// in pending_creation, then lock totals (authoritative pricing, coupon
// resolution and inventory reservation). A failure while locking totals
// fails the order rather than leaving it half-created.
func (s *CheckoutService) Checkout(req CheckoutRequest) (*models.Order, error) {
	phone, err := models.NormalizePhone(req.Contact.Phone)
	if err != nil {
		return nil, err
	}
	req.Contact.Phone = phone

	snapshot, err := s.BuildSnapshot(req.EventID, req.Items)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.Create(repositories.OrderCreateParams{
		UserID:            req.UserID,
		GuestSessionID:    req.GuestSessionID,
		EventID:           snapshot.EventID,
		Contact:           req.Contact,
		Items:             snapshot.Items,
		CouponCode:        req.CouponCode,
		SupersedesOrderID: req.SupersedesOrderID,
	})
	if err != nil {
		return nil, err
	}

	locked, err := s.LockTotals(order.ID)
	if err != nil {
		reason := err.Error()
		if failErr := s.orderRepo.MarkFailed(order.ID, models.PaymentStatusFailed, reason); failErr != nil {
			s.logger.Error("failed to fail order after total locking error",
				zap.Int("order_id", order.ID),
				zap.Error(failErr))
		}
		return nil, err
	}

	s.logger.Info("checkout completed",
		zap.Int("order_id", locked.ID),
		zap.String("order_number", locked.OrderNumber),
		zap.Int("total_amount", locked.TotalAmount))

	return locked, nil
}

// LockTotals recomputes an order's totals from the catalog, resolves the
// coupon and transitions the order to pending_payment_initiation while
// reserving inventory. A zero total is rejected unless a full-discount
// coupon produced it.
func (s *CheckoutService) LockTotals(orderID int) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.TicketTypeID)
	}

	types, err := s.catalogRepo.GetTicketTypesByIDs(ids)
	if err != nil {
		return nil, err
	}

	locked := repositories.LockedTotals{}
	for _, item := range order.Items {
		tt, ok := types[item.TicketTypeID]
		if !ok {
			return nil, models.ErrTicketNotFound
		}
		locked.Items = append(locked.Items, repositories.LockedLineItem{
			TicketTypeID: tt.ID,
			TicketName:   tt.Name,
			UnitPrice:    tt.Price,
			Quantity:     item.Quantity,
		})
		locked.OriginalTotalAmount += tt.Price * item.Quantity
	}

	var coupon *models.Coupon
	if order.CouponCode != "" {
		var discount int
		coupon, discount, err = s.coupons.Resolve(order.CouponCode, order.EventID, order.UserID, locked.OriginalTotalAmount)
		if err != nil {
			return nil, fmt.Errorf("coupon %s rejected: %w", order.CouponCode, err)
		}
		locked.CouponCode = coupon.Code
		locked.DiscountAmount = discount
	}

	locked.TotalAmount = locked.OriginalTotalAmount - locked.DiscountAmount

	// The only legitimate zero-amount order is one fully covered by a coupon.
	if locked.TotalAmount <= 0 {
		if locked.TotalAmount < 0 || coupon == nil || !coupon.IsFullDiscount(locked.OriginalTotalAmount) {
			return nil, models.ErrInvalidAmount
		}
		locked.TotalAmount = 0
	}

	return s.orderRepo.LockTotals(orderID, locked)
}

// IsSoldOut reports whether an error is an inventory rejection
func IsSoldOut(err error) bool {
	var soldOut *models.SoldOutError
	return errors.As(err, &soldOut)
}
