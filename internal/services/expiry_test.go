package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tikiti/internal/models"
)

func TestExpiryWorker_SweepFailsStaleOrders(t *testing.T) {
	env := newTestEnv(t)

	stale := env.checkoutRegular(t, 1)
	_ = env.initiatePush(t, stale.ID)

	fresh := env.checkoutRegular(t, 1)

	// Age the pushed order past the ceiling.
	_, err := env.db.Exec("UPDATE orders SET updated_at = ? WHERE id = ?",
		time.Now().Add(-10*time.Minute), stale.ID)
	require.NoError(t, err)

	worker := NewExpiryWorker(env.orderRepo, env.watcher, 5*time.Minute, time.Second)
	worker.Sweep()

	expired, err := env.orderRepo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, expired.Status)
	assert.Equal(t, models.PaymentStatusTimeout, expired.PaymentStatus)
	assert.Equal(t, "payment confirmation window elapsed", expired.FailureReason)

	// Orders not yet in flight are untouched.
	untouched, err := env.orderRepo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingPaymentInitiation, untouched.Status)

	// The expired order's inventory went back on sale.
	var sold int
	require.NoError(t, env.db.QueryRow(
		"SELECT sold FROM ticket_types WHERE id = ?", env.regularID).Scan(&sold))
	assert.Equal(t, 1, sold, "only the fresh order's reservation remains")
}

func TestExpiryWorker_SweepIsSafeToRepeat(t *testing.T) {
	env := newTestEnv(t)

	order := env.checkoutRegular(t, 1)
	_ = env.initiatePush(t, order.ID)

	_, err := env.db.Exec("UPDATE orders SET updated_at = ? WHERE id = ?",
		time.Now().Add(-10*time.Minute), order.ID)
	require.NoError(t, err)

	worker := NewExpiryWorker(env.orderRepo, env.watcher, 5*time.Minute, time.Second)
	worker.Sweep()
	worker.Sweep()

	var sold int
	require.NoError(t, env.db.QueryRow(
		"SELECT sold FROM ticket_types WHERE id = ?", env.regularID).Scan(&sold))
	assert.Equal(t, 0, sold, "inventory must only be released once")
}
