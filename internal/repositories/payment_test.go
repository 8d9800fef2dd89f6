package repositories

import (
	"errors"
	"testing"

	"tikiti/internal/models"
)

func TestPaymentRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	eventID, regularID, _ := seedCatalog(t, db)
	orderRepo := NewOrderRepository(db.DB)
	paymentRepo := NewPaymentRepository(db.DB)

	order := createLockedOrder(t, orderRepo, eventID, regularID, 1)

	payment := &models.Payment{
		CheckoutRequestID: "ws_CO_100",
		OrderID:           order.ID,
		Method:            models.PaymentMethodPushPayment,
		Amount:            50000,
		Phone:             "254712345678",
		Status:            models.PaymentStatusPending,
	}
	if err := paymentRepo.Create(payment); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := paymentRepo.GetByCheckoutRequestID("ws_CO_100")
	if err != nil {
		t.Fatalf("GetByCheckoutRequestID() error = %v", err)
	}
	if found.OrderID != order.ID || found.Amount != 50000 {
		t.Errorf("unexpected payment: %+v", found)
	}

	if _, err := paymentRepo.GetByCheckoutRequestID("nope"); !errors.Is(err, models.ErrPaymentNotFound) {
		t.Errorf("GetByCheckoutRequestID(nope) error = %v, want ErrPaymentNotFound", err)
	}
}

func TestPaymentRepository_UpdateStatus_NeverRegresses(t *testing.T) {
	db := setupTestDB(t)
	eventID, regularID, _ := seedCatalog(t, db)
	orderRepo := NewOrderRepository(db.DB)
	paymentRepo := NewPaymentRepository(db.DB)

	order := createLockedOrder(t, orderRepo, eventID, regularID, 1)
	if err := paymentRepo.Create(&models.Payment{
		CheckoutRequestID: "ws_CO_200",
		OrderID:           order.ID,
		Method:            models.PaymentMethodPushPayment,
		Amount:            50000,
		Status:            models.PaymentStatusPending,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := paymentRepo.UpdateStatus("ws_CO_200", models.PaymentStatusCompleted, "The service request is processed successfully."); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	// A re-delivered callback against a final payment is a quiet no-op.
	if err := paymentRepo.UpdateStatus("ws_CO_200", models.PaymentStatusFailed, "Request cancelled by user"); err != nil {
		t.Fatalf("replayed UpdateStatus() error = %v", err)
	}

	payment, err := paymentRepo.GetByCheckoutRequestID("ws_CO_200")
	if err != nil {
		t.Fatalf("GetByCheckoutRequestID() error = %v", err)
	}
	if payment.Status != models.PaymentStatusCompleted {
		t.Errorf("status = %s after replay, want %s", payment.Status, models.PaymentStatusCompleted)
	}
	if payment.ResultDescription != "The service request is processed successfully." {
		t.Errorf("result description = %q", payment.ResultDescription)
	}
}
