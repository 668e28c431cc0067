package matchrepo

import (
	"context"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// Repository provides access to persisted matches.
//
// The store enforces at most one match per (offer, shipment) pair; Insert
// returns ErrAlreadyExists when the pair is already recorded, which callers
// treat as success-no-op.
type Repository interface {
	Insert(ctx context.Context, m domain.Match) error
	Save(ctx context.Context, m domain.Match) error

	GetByID(ctx context.Context, id domain.MatchID) (domain.Match, error)
	GetByPair(ctx context.Context, offer domain.OfferID, shipment domain.ShipmentID) (domain.Match, error)

	ListByOffer(ctx context.Context, offer domain.OfferID) ([]domain.Match, error)
	ListByShipment(ctx context.Context, shipment domain.ShipmentID) ([]domain.Match, error)
}
