package services

import (
	"tikiti/internal/models"
)

// RedemptionTicketRepository interface for ticket reads and the one-way
// redemption flip
type RedemptionTicketRepository interface {
	GetByID(id string) (*models.Ticket, error)
	MarkRedeemed(id string) error
}

// TokenVerifier verifies a scannable token and returns its ticket id
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// RedemptionService handles gate scans. A ticket redeems exactly once;
// the repository guard makes the second scan of the same token fail.
type RedemptionService struct {
	ticketRepo RedemptionTicketRepository
	verifier   TokenVerifier
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(ticketRepo RedemptionTicketRepository, verifier TokenVerifier) *RedemptionService {
	return &RedemptionService{
		ticketRepo: ticketRepo,
		verifier:   verifier,
	}
}

// Redeem verifies the token signature and flips the redemption flag.
// Returns the redeemed ticket on success.
func (s *RedemptionService) Redeem(token string) (*models.Ticket, error) {
	ticketID, err := s.verifier.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.MarkRedeemed(ticketID); err != nil {
		return nil, err
	}

	return s.ticketRepo.GetByID(ticketID)
}
