package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tikiti/internal/models"
)

// EventCatalogReader reads the public event catalog
type EventCatalogReader interface {
	GetEventByID(id int) (*models.Event, error)
	GetTicketTypesByEvent(eventID int) ([]*models.TicketType, error)
}

// EventHandler serves the public catalog reads the storefront needs
type EventHandler struct {
	catalog EventCatalogReader
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog EventCatalogReader) *EventHandler {
	return &EventHandler{catalog: catalog}
}

// RegisterRoutes registers the event routes
func (h *EventHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/events/:id", h.GetEvent)
}

// GetEvent returns an event with its ticket types and live availability
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.catalog.GetEventByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	types, err := h.catalog.GetTicketTypesByEvent(id)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(types))
	for _, tt := range types {
		views = append(views, gin.H{
			"id":        tt.ID,
			"name":      tt.Name,
			"price":     tt.Price,
			"available": tt.Available(),
			"sold_out":  tt.IsSoldOut(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"event":        event,
		"ticket_types": views,
	})
}
