package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"tikiti/internal/models"
)

// TicketRepository handles issued-ticket data operations. Tickets are only
// ever created inside OrderRepository.ProcessOrderCompletion; this
// repository provides the read and redemption primitives.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// GetByID retrieves a ticket by its unguessable identifier
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := r.db.QueryRow(`
		SELECT id, order_id, ticket_type_id, ticket_name, token, redeemed, issued_at
		FROM tickets
		WHERE id = ?`, id).Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.TicketTypeID,
		&ticket.TicketName,
		&ticket.Token,
		&ticket.Redeemed,
		&ticket.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// GetByOrder retrieves all tickets issued for an order
func (r *TicketRepository) GetByOrder(orderID int) ([]*models.Ticket, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, ticket_type_id, ticket_name, token, redeemed, issued_at
		FROM tickets
		WHERE order_id = ?
		ORDER BY issued_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		if err := rows.Scan(&ticket.ID, &ticket.OrderID, &ticket.TicketTypeID,
			&ticket.TicketName, &ticket.Token, &ticket.Redeemed, &ticket.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// MarkRedeemed flips the single-use redemption flag. The guarded update
// makes redemption one-way: a second scan of the same ticket fails with
// ErrTicketRedeemed.
func (r *TicketRepository) MarkRedeemed(id string) error {
	result, err := r.db.Exec(
		"UPDATE tickets SET redeemed = 1 WHERE id = ? AND redeemed = 0", id)
	if err != nil {
		return fmt.Errorf("failed to redeem ticket: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(id); err != nil {
			return err
		}
		return models.ErrTicketRedeemed
	}

	return nil
}
