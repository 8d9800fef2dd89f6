package models

import "time"

// Event is the catalog collaborator the checkout core reads ticket types
// from. Content management for events lives outside this service.
type Event struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	OrganizerID int       `json:"organizer_id" db:"organizer_id"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	Location    string    `json:"location" db:"location"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
