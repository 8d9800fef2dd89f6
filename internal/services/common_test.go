package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"tikiti/internal/cache"
	"tikiti/internal/database"
	"tikiti/internal/models"
	"tikiti/internal/repositories"
)

// testEnv wires the service stack against an in-memory database the way
// cmd/server does, with the provider replaced by a mock.
type testEnv struct {
	db          *database.DB
	orderRepo   *repositories.OrderRepository
	paymentRepo *repositories.PaymentRepository
	couponRepo  *repositories.CouponRepository
	ticketRepo  *repositories.TicketRepository
	eventRepo   *repositories.EventRepository

	pusher   *mockPusher
	watcher  *OrderWatcher
	checkout *CheckoutService
	gateway  *PaymentGatewayService
	issuer   *TicketIssuerService
	reconci  *ReconciliationService

	eventID   int
	regularID int
	vipID     int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env := &testEnv{
		db:          db,
		orderRepo:   repositories.NewOrderRepository(db.DB),
		paymentRepo: repositories.NewPaymentRepository(db.DB),
		couponRepo:  repositories.NewCouponRepository(db.DB),
		ticketRepo:  repositories.NewTicketRepository(db.DB),
		eventRepo:   repositories.NewEventRepository(db.DB),
		pusher:      &mockPusher{},
		watcher:     NewOrderWatcher(),
	}

	coupons := NewCouponService(env.couponRepo, env.orderRepo)
	env.checkout = NewCheckoutService(env.orderRepo, env.eventRepo, coupons)
	env.issuer = NewTicketIssuerService(env.orderRepo, "test-secret")
	env.gateway = NewPaymentGatewayService(
		env.orderRepo, env.paymentRepo, env.pusher, env.issuer,
		cache.NewMemoryInFlightGuard(), env.watcher, 5*time.Minute)
	env.reconci = NewReconciliationService(env.orderRepo, env.paymentRepo, env.issuer, env.watcher)

	env.seedCatalog(t)
	return env
}

// seedCatalog creates one event with Regular (KES 500, 10 available) and
// VIP (KES 2500, 3 available) ticket types.
func (env *testEnv) seedCatalog(t *testing.T) {
	t.Helper()

	start := time.Now().Add(24 * time.Hour)
	result, err := env.db.Exec(`
		INSERT INTO events (title, organizer_id, start_date, end_date, location)
		VALUES (?, ?, ?, ?, ?)`,
		"Test Festival", 1, start, start.Add(6*time.Hour), "Nairobi")
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	eid, _ := result.LastInsertId()
	env.eventID = int(eid)

	result, err = env.db.Exec(`
		INSERT INTO ticket_types (event_id, name, price, quantity)
		VALUES (?, 'Regular', 50000, 10)`, eid)
	if err != nil {
		t.Fatalf("failed to seed regular ticket type: %v", err)
	}
	rid, _ := result.LastInsertId()
	env.regularID = int(rid)

	result, err = env.db.Exec(`
		INSERT INTO ticket_types (event_id, name, price, quantity)
		VALUES (?, 'VIP', 250000, 3)`, eid)
	if err != nil {
		t.Fatalf("failed to seed vip ticket type: %v", err)
	}
	vid, _ := result.LastInsertId()
	env.vipID = int(vid)
}

func (env *testEnv) seedCoupon(t *testing.T, coupon *models.Coupon) {
	t.Helper()
	if err := env.couponRepo.Create(coupon); err != nil {
		t.Fatalf("failed to seed coupon %s: %v", coupon.Code, err)
	}
}

func (env *testEnv) checkoutRegular(t *testing.T, quantity int) *models.Order {
	t.Helper()

	order, err := env.checkout.Checkout(CheckoutRequest{
		EventID: env.eventID,
		Items: []models.CartItem{
			{TicketTypeID: env.regularID, Quantity: quantity},
		},
		Contact: models.CustomerContact{
			Name:  "Wanjiku Kamau",
			Email: "wanjiku@example.com",
			Phone: "0712345678",
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return order
}

// mockPusher is a scripted STK push provider.
type mockPusher struct {
	mu       sync.Mutex
	calls    int
	requests []STKPushRequest
	err      error
	nextID   string
}

func (m *mockPusher) STKPush(_ context.Context, req STKPushRequest) (*STKPushResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}

	id := m.nextID
	if id == "" {
		id = "ws_CO_mock_1"
	}
	return &STKPushResponse{
		CheckoutRequestID: id,
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (m *mockPusher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockPusher) lastRequest() STKPushRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return STKPushRequest{}
	}
	return m.requests[len(m.requests)-1]
}
