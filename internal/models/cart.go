package models

import "sort"

// CartItem represents one ticket-type selection in a cart
type CartItem struct {
	TicketTypeID int    `json:"ticket_type_id"`
	TicketName   string `json:"ticket_name"`
	UnitPrice    int    `json:"unit_price"` // in cents
	Quantity     int    `json:"quantity"`
	Subtotal     int    `json:"subtotal"` // in cents
}

// CartSnapshot is a point-in-time view over a persisted cart for one event.
// It is read-only: building a snapshot never mutates the underlying cart.
type CartSnapshot struct {
	EventID             int        `json:"event_id"`
	Items               []CartItem `json:"items"`
	OriginalTotalAmount int        `json:"original_total_amount"` // in cents
}

// NewCartSnapshot builds a snapshot from raw selections. Zero-quantity
// entries are dropped, items are ordered by ticket type id, and every item
// must belong to the given event. An empty result is ErrEmptyCart.
func NewCartSnapshot(eventID int, items []CartItem) (*CartSnapshot, error) {
	snapshot := &CartSnapshot{EventID: eventID}

	seen := make(map[int]bool)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if seen[item.TicketTypeID] {
			continue
		}
		seen[item.TicketTypeID] = true

		item.Subtotal = item.UnitPrice * item.Quantity
		snapshot.Items = append(snapshot.Items, item)
		snapshot.OriginalTotalAmount += item.Subtotal
	}

	if len(snapshot.Items) == 0 {
		return nil, ErrEmptyCart
	}

	sort.Slice(snapshot.Items, func(i, j int) bool {
		return snapshot.Items[i].TicketTypeID < snapshot.Items[j].TicketTypeID
	})

	return snapshot, nil
}

// TotalQuantity returns the number of individual tickets in the snapshot
func (c *CartSnapshot) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}
