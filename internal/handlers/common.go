package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tikiti/internal/models"
)

func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// respondError maps domain errors onto HTTP statuses. Sold-out and
// duplicate-attempt rejections are conflicts; validation problems are bad
// requests; anything unrecognized is a 500 with the detail kept server-side.
func respondError(c *gin.Context, err error) {
	var soldOut *models.SoldOutError
	switch {
	case errors.As(err, &soldOut):
		c.JSON(http.StatusConflict, gin.H{
			"error":            soldOut.Error(),
			"ticket_type_id":   soldOut.TicketTypeID,
			"ticket_type_name": soldOut.TicketTypeName,
			"requested":        soldOut.Requested,
			"remaining":        soldOut.Remaining,
		})
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrTicketNotFound),
		errors.Is(err, models.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDuplicatePaymentAttempt),
		errors.Is(err, models.ErrAlreadyIssued),
		errors.Is(err, models.ErrTicketRedeemed),
		errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrMixedEventCart),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidPhoneNumber),
		errors.Is(err, models.ErrCouponNotFound),
		errors.Is(err, models.ErrCouponExpired),
		errors.Is(err, models.ErrCouponExhausted),
		errors.Is(err, models.ErrCouponNotApplicable),
		errors.Is(err, models.ErrInvalidTicketToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
