package services

import (
	"sync"

	"tikiti/internal/models"
)

// OrderNotifier publishes order status changes to interested watchers
type OrderNotifier interface {
	Publish(order *models.Order)
}

// OrderWatcher fans order status changes out to subscribers, one channel
// per watching client. Payment pages subscribe while an order is in
// flight so the browser learns about the callback without polling.
type OrderWatcher struct {
	mu   sync.RWMutex
	subs map[int]map[chan *models.Order]struct{}
}

// NewOrderWatcher creates a new order watcher
func NewOrderWatcher() *OrderWatcher {
	return &OrderWatcher{
		subs: make(map[int]map[chan *models.Order]struct{}),
	}
}

// Subscribe registers interest in an order's status changes. The returned
// cancel function must be called when the watcher goes away.
func (w *OrderWatcher) Subscribe(orderID int) (<-chan *models.Order, func()) {
	ch := make(chan *models.Order, 8)

	w.mu.Lock()
	if w.subs[orderID] == nil {
		w.subs[orderID] = make(map[chan *models.Order]struct{})
	}
	w.subs[orderID][ch] = struct{}{}
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		if set, ok := w.subs[orderID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(w.subs, orderID)
			}
		}
		w.mu.Unlock()
	}

	return ch, cancel
}

// Publish notifies all subscribers of the order's current state. Slow
// subscribers drop updates rather than block the publisher; the terminal
// state is what matters and the client re-reads the order on connect.
func (w *OrderWatcher) Publish(order *models.Order) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for ch := range w.subs[order.ID] {
		select {
		case ch <- order:
		default:
		}
	}
}
