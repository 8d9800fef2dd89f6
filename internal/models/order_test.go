package models

import (
	"testing"
	"time"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"creation to payment initiation", OrderPendingCreation, OrderPendingPaymentInitiation, true},
		{"payment initiation to processing", OrderPendingPaymentInitiation, OrderProcessing, true},
		{"processing to stk push sent", OrderProcessing, OrderSTKPushSent, true},
		{"processing to pending manual", OrderProcessing, OrderPendingManual, true},
		{"processing directly to completed", OrderProcessing, OrderCompleted, true},
		{"stk push sent to completed", OrderSTKPushSent, OrderCompleted, true},
		{"pending manual to completed", OrderPendingManual, OrderCompleted, true},
		{"creation cannot skip to processing", OrderPendingCreation, OrderProcessing, false},
		{"creation cannot skip to completed", OrderPendingCreation, OrderCompleted, false},
		{"stk push sent cannot go manual", OrderSTKPushSent, OrderPendingManual, false},
		{"completed is terminal", OrderCompleted, OrderFailed, false},
		{"failed is terminal", OrderFailed, OrderCompleted, false},
		{"failed cannot re-fail", OrderFailed, OrderFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderStatus_FailedReachableFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []OrderStatus{
		OrderPendingCreation,
		OrderPendingPaymentInitiation,
		OrderProcessing,
		OrderSTKPushSent,
		OrderPendingManual,
	}

	for _, status := range nonTerminal {
		if !status.CanTransitionTo(OrderFailed) {
			t.Errorf("expected %s to allow transition to failed", status)
		}
	}
}

func TestOrderStatus_IsInFlight(t *testing.T) {
	inFlight := map[OrderStatus]bool{
		OrderPendingCreation:          false,
		OrderPendingPaymentInitiation: false,
		OrderProcessing:               true,
		OrderSTKPushSent:              true,
		OrderPendingManual:            true,
		OrderCompleted:                false,
		OrderFailed:                   false,
	}

	for status, want := range inFlight {
		if got := status.IsInFlight(); got != want {
			t.Errorf("IsInFlight(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local safaricom format", "0712345678", "254712345678", false},
		{"local airtel 01 format", "0112345678", "254112345678", false},
		{"international format", "254712345678", "254712345678", false},
		{"plus prefix", "+254712345678", "254712345678", false},
		{"spaces and dashes", "0712 345-678", "254712345678", false},
		{"bare subscriber number", "712345678", "254712345678", false},
		{"too short", "07123", "", true},
		{"too long", "07123456789", "", true},
		{"wrong prefix", "0812345678", "", true},
		{"letters", "07abc45678", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizePhone(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber()
		if err := ValidateOrderNumber(number); err != nil {
			t.Fatalf("generated order number %q is invalid: %v", number, err)
		}
		seen[number] = true
	}

	// 100 draws from a 6-digit space colliding down to a handful would
	// point at a broken generator.
	if len(seen) < 95 {
		t.Errorf("expected mostly unique order numbers, got %d unique of 100", len(seen))
	}
}

func TestOrder_IsExpired(t *testing.T) {
	ceiling := 5 * time.Minute

	tests := []struct {
		name      string
		status    OrderStatus
		updatedAt time.Time
		want      bool
	}{
		{"in-flight past ceiling", OrderSTKPushSent, time.Now().Add(-10 * time.Minute), true},
		{"in-flight within ceiling", OrderSTKPushSent, time.Now().Add(-1 * time.Minute), false},
		{"processing past ceiling", OrderProcessing, time.Now().Add(-6 * time.Minute), true},
		{"completed never expires", OrderCompleted, time.Now().Add(-time.Hour), false},
		{"pending creation never expires", OrderPendingCreation, time.Now().Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{Status: tt.status, UpdatedAt: tt.updatedAt}
			if got := order.IsExpired(ceiling); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomerContact_Validate(t *testing.T) {
	tests := []struct {
		name    string
		contact CustomerContact
		wantErr bool
	}{
		{"valid contact", CustomerContact{Name: "Wanjiku Kamau", Email: "wanjiku@example.com", Phone: "0712345678"}, false},
		{"missing name", CustomerContact{Email: "wanjiku@example.com"}, true},
		{"missing email", CustomerContact{Name: "Wanjiku Kamau"}, true},
		{"bad email", CustomerContact{Name: "Wanjiku Kamau", Email: "not-an-email"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.contact.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
