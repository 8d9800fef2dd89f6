package models

import (
	"errors"
	"strings"
	"time"
)

// TicketType represents a type of ticket for an event. Sold is the number
// of units already reserved or sold; inventory decrements happen against
// it atomically at total-locking time.
type TicketType struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	Name      string    `json:"name" db:"name"`
	Price     int       `json:"price" db:"price"` // Price in cents
	Quantity  int       `json:"quantity" db:"quantity"`
	Sold      int       `json:"sold" db:"sold"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Ticket represents an individual issued ticket. ID doubles as the jti of
// the signed token, so it must be unguessable and unique system-wide.
type Ticket struct {
	ID           string    `json:"id" db:"id"`
	OrderID      int       `json:"order_id" db:"order_id"`
	TicketTypeID int       `json:"ticket_type_id" db:"ticket_type_id"`
	TicketName   string    `json:"ticket_name" db:"ticket_name"`
	Token        string    `json:"token" db:"token"` // scannable proof-of-purchase
	Redeemed     bool      `json:"redeemed" db:"redeemed"`
	IssuedAt     time.Time `json:"issued_at" db:"issued_at"`
}

// Validate validates the ticket data
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return errors.New("ticket id is required")
	}

	if t.Token == "" {
		return errors.New("ticket token is required")
	}

	if t.OrderID <= 0 {
		return errors.New("ticket must belong to an order")
	}

	if strings.TrimSpace(t.TicketName) == "" {
		return errors.New("ticket name is required")
	}

	return nil
}

// Validate validates the ticket type data
func (tt *TicketType) Validate() error {
	if strings.TrimSpace(tt.Name) == "" {
		return errors.New("ticket type name is required")
	}

	if len(tt.Name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	if tt.Price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	if tt.Quantity <= 0 {
		return errors.New("ticket quantity must be greater than 0")
	}

	return nil
}

// IsSoldOut returns true if all tickets are sold
func (tt *TicketType) IsSoldOut() bool {
	return tt.Sold >= tt.Quantity
}

// Available returns the number of available tickets
func (tt *TicketType) Available() int {
	available := tt.Quantity - tt.Sold
	if available < 0 {
		return 0
	}
	return available
}

// PriceInCurrency returns the price in KES as a float
func (tt *TicketType) PriceInCurrency() float64 {
	return float64(tt.Price) / 100.0
}

// CanBeRedeemed returns true if the ticket has not been scanned yet
func (t *Ticket) CanBeRedeemed() bool {
	return !t.Redeemed
}
