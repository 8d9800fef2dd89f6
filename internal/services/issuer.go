package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tikiti/internal/models"
	"tikiti/internal/repositories"
	"tikiti/pkg/logger"
)

// IssuerOrderRepository interface for the order data operations issuance needs
type IssuerOrderRepository interface {
	GetByID(id int) (*models.Order, error)
	ProcessOrderCompletion(orderID int, tickets []repositories.IssuedTicket) error
}

// TicketIssuerService mints tickets for a paid order. Issuance is
// idempotent: the completion transaction rejects a second run for the
// same order, so a re-delivered success signal can never duplicate
// tickets.
type TicketIssuerService struct {
	orderRepo   IssuerOrderRepository
	tokenSecret []byte
	logger      *zap.Logger
}

// NewTicketIssuerService creates a new ticket issuer
func NewTicketIssuerService(orderRepo IssuerOrderRepository, tokenSecret string) *TicketIssuerService {
	return &TicketIssuerService{
		orderRepo:   orderRepo,
		tokenSecret: []byte(tokenSecret),
		logger:      logger.WithComponent("ticket_issuer"),
	}
}

// Issue completes the order and creates one ticket per purchased unit,
// each with an unguessable id and a signed scannable token. Returns the
// completed order with its tickets loaded.
func (s *TicketIssuerService) Issue(orderID int) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	var tickets []repositories.IssuedTicket
	for _, item := range order.Items {
		for i := 0; i < item.Quantity; i++ {
			id := uuid.NewString()
			token, err := s.signToken(id, order, item)
			if err != nil {
				return nil, fmt.Errorf("failed to sign ticket token: %w", err)
			}
			tickets = append(tickets, repositories.IssuedTicket{
				ID:           id,
				TicketTypeID: item.TicketTypeID,
				TicketName:   item.TicketName,
				Token:        token,
			})
		}
	}

	if err := s.orderRepo.ProcessOrderCompletion(orderID, tickets); err != nil {
		return nil, err
	}

	s.logger.Info("tickets issued",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("count", len(tickets)))

	return s.orderRepo.GetByID(orderID)
}

// signToken creates the scannable proof-of-purchase. The ticket id is the
// jti, so a token verifies against exactly one ticket row at the gate.
func (s *TicketIssuerService) signToken(ticketID string, order *models.Order, item models.OrderItem) (string, error) {
	claims := jwt.MapClaims{
		"jti":          ticketID,
		"order_number": order.OrderNumber,
		"event_id":     order.EventID,
		"ticket_type":  item.TicketTypeID,
		"ticket_name":  item.TicketName,
		"iat":          time.Now().Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
}

// VerifyToken parses and verifies a scannable token, returning the ticket
// id it was minted for.
func (s *TicketIssuerService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.tokenSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidTicketToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", models.ErrInvalidTicketToken
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return "", models.ErrInvalidTicketToken
	}

	return jti, nil
}
