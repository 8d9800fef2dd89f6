package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tikiti/internal/models"
)

func (env *testEnv) initiatePush(t *testing.T, orderID int) *models.Order {
	t.Helper()
	order, err := env.gateway.Initiate(context.Background(), orderID, InitiatePaymentRequest{
		Method: models.PaymentMethodPushPayment,
	})
	if err != nil {
		t.Fatalf("failed to initiate push: %v", err)
	}
	return order
}

func TestReconciliation_SuccessIssuesTickets(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 2)
	pushed := env.initiatePush(t, order.ID)

	err := env.reconci.HandleProviderResult(ProviderResult{
		CheckoutRequestID: pushed.CheckoutRequestID,
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
	})
	require.NoError(t, err)

	completed, err := env.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, completed.Status)
	assert.Equal(t, models.PaymentStatusCompleted, completed.PaymentStatus)
	require.Len(t, completed.Tickets, 2)
	for _, ticket := range completed.Tickets {
		assert.NotEmpty(t, ticket.ID)
		assert.NotEmpty(t, ticket.Token)
		assert.False(t, ticket.Redeemed)
	}

	payment, err := env.paymentRepo.GetByCheckoutRequestID(pushed.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
}

func TestReconciliation_DuplicateCallbackIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 2)
	pushed := env.initiatePush(t, order.ID)

	result := ProviderResult{
		CheckoutRequestID: pushed.CheckoutRequestID,
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
	}
	require.NoError(t, env.reconci.HandleProviderResult(result))
	require.NoError(t, env.reconci.HandleProviderResult(result))

	completed, err := env.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Len(t, completed.Tickets, 2, "replayed callback must not mint more tickets")
}

func TestReconciliation_FailureRecordsVerbatimReason(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 1)
	pushed := env.initiatePush(t, order.ID)

	err := env.reconci.HandleProviderResult(ProviderResult{
		CheckoutRequestID: pushed.CheckoutRequestID,
		ResultCode:        1032,
		ResultDescription: "Request cancelled by user",
	})
	require.NoError(t, err)

	failed, err := env.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, failed.Status)
	assert.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, "Request cancelled by user", failed.FailureReason)

	// Failure releases the reserved inventory for other shoppers.
	var sold int
	require.NoError(t, env.db.QueryRow(
		"SELECT sold FROM ticket_types WHERE id = ?", env.regularID).Scan(&sold))
	assert.Equal(t, 0, sold)
}

func TestReconciliation_UnknownCorrelationIsAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	err := env.reconci.HandleProviderResult(ProviderResult{
		CheckoutRequestID: "ws_CO_never_seen",
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
	})
	assert.NoError(t, err, "unknown correlation ids are logged, not errors")
}

func TestReconciliation_LateSuccessAfterTimeout(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 1)
	pushed := env.initiatePush(t, order.ID)

	// The expiry worker fails the order before the callback lands.
	require.NoError(t, env.orderRepo.MarkFailed(order.ID,
		models.PaymentStatusTimeout, "payment confirmation window elapsed"))

	err := env.reconci.HandleProviderResult(ProviderResult{
		CheckoutRequestID: pushed.CheckoutRequestID,
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
	})
	require.NoError(t, err)

	// Terminal means terminal: the late success must not resurrect the order.
	still, err := env.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, still.Status)
	assert.Empty(t, still.Tickets)
}

func TestReconciliation_ConfirmManual(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 1)

	pending, err := env.gateway.Initiate(context.Background(), order.ID, InitiatePaymentRequest{
		Method: models.PaymentMethodManualTransfer,
	})
	require.NoError(t, err)

	completed, err := env.reconci.ConfirmManual(pending.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, completed.Status)
	assert.Len(t, completed.Tickets, 1)

	// Confirming again is rejected, not re-issued.
	_, err = env.reconci.ConfirmManual(pending.CheckoutRequestID)
	assert.ErrorIs(t, err, models.ErrAlreadyIssued)
}

func TestReconciliation_PublishesToWatchers(t *testing.T) {
	env := newTestEnv(t)
	order := env.checkoutRegular(t, 1)
	pushed := env.initiatePush(t, order.ID)

	updates, cancel := env.watcher.Subscribe(order.ID)
	defer cancel()

	require.NoError(t, env.reconci.HandleProviderResult(ProviderResult{
		CheckoutRequestID: pushed.CheckoutRequestID,
		ResultCode:        0,
		ResultDescription: "The service request is processed successfully.",
	}))

	select {
	case update := <-updates:
		assert.Equal(t, models.OrderCompleted, update.Status)
	default:
		t.Fatal("expected a status update on the watcher channel")
	}
}
