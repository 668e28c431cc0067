package offerrepo

import (
	"context"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// CandidateFilter is the coarse server-side filter applied when an offer set
// is fetched as matching candidates for a shipment. Country equality bounds
// the result size; exact city work happens in the scorer.
type CandidateFilter struct {
	FromCountry string
	ToCountry   string

	// TripDateOnOrAfter excludes offers already in the past. Zero disables
	// the floor.
	TripDateOnOrAfter time.Time
}

// Repository provides access to persisted transport offers.
//
// List methods return results deterministically ordered: newest CreatedAt
// first, ID ascending on ties.
type Repository interface {
	Create(ctx context.Context, o domain.TransportOffer) error
	Save(ctx context.Context, o domain.TransportOffer) error

	GetByID(ctx context.Context, id domain.OfferID) (domain.TransportOffer, error)

	ListByUser(ctx context.Context, user domain.UserID) ([]domain.TransportOffer, error)

	// ListOpen returns every offer still in the available status.
	ListOpen(ctx context.Context) ([]domain.TransportOffer, error)

	// ListCandidates returns available offers matching the filter.
	ListCandidates(ctx context.Context, f CandidateFilter) ([]domain.TransportOffer, error)
}
