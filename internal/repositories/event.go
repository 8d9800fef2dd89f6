package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tikiti/internal/models"
)

// EventRepository handles catalog reads for events and their ticket types.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetEventByID retrieves an event by its ID
func (r *EventRepository) GetEventByID(id int) (*models.Event, error) {
	event := &models.Event{}
	err := r.db.QueryRow(`
		SELECT id, title, organizer_id, start_date, end_date, location, created_at
		FROM events
		WHERE id = ?`, id).Scan(
		&event.ID,
		&event.Title,
		&event.OrganizerID,
		&event.StartDate,
		&event.EndDate,
		&event.Location,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// GetTicketTypeByID retrieves a ticket type by its ID
func (r *EventRepository) GetTicketTypeByID(id int) (*models.TicketType, error) {
	tt := &models.TicketType{}
	err := r.db.QueryRow(`
		SELECT id, event_id, name, price, quantity, sold, created_at
		FROM ticket_types
		WHERE id = ?`, id).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.Quantity,
		&tt.Sold,
		&tt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	return tt, nil
}

// GetTicketTypesByIDs retrieves a set of ticket types keyed by ID. Missing
// IDs are not an error here; the caller decides how to treat them.
func (r *EventRepository) GetTicketTypesByIDs(ids []int) (map[int]*models.TicketType, error) {
	result := make(map[int]*models.TicketType, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT id, event_id, name, price, quantity, sold, created_at
		FROM ticket_types
		WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tt := &models.TicketType{}
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Price,
			&tt.Quantity, &tt.Sold, &tt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		result[tt.ID] = tt
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}

	return result, nil
}

// GetTicketTypesByEvent retrieves all ticket types for an event
func (r *EventRepository) GetTicketTypesByEvent(eventID int) ([]*models.TicketType, error) {
	rows, err := r.db.Query(`
		SELECT id, event_id, name, price, quantity, sold, created_at
		FROM ticket_types
		WHERE event_id = ?
		ORDER BY price ASC, id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event ticket types: %w", err)
	}
	defer rows.Close()

	var types []*models.TicketType
	for rows.Next() {
		tt := &models.TicketType{}
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Price,
			&tt.Quantity, &tt.Sold, &tt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types = append(types, tt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}

	return types, nil
}
