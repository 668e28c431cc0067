package shipmentrepo

import (
	"context"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// CandidateFilter is the coarse server-side filter applied when pending
// shipments are fetched as matching candidates for an offer.
type CandidateFilter struct {
	FromCountry string
	ToCountry   string

	// NeededDateOnOrAfter excludes shipments whose deadline already passed.
	// Zero disables the floor.
	NeededDateOnOrAfter time.Time
}

// Repository provides access to persisted shipment requests.
//
// List methods return results deterministically ordered: newest CreatedAt
// first, ID ascending on ties.
type Repository interface {
	Create(ctx context.Context, s domain.ShipmentRequest) error
	Save(ctx context.Context, s domain.ShipmentRequest) error

	GetByID(ctx context.Context, id domain.ShipmentID) (domain.ShipmentRequest, error)

	ListByUser(ctx context.Context, user domain.UserID) ([]domain.ShipmentRequest, error)

	// ListOpen returns every shipment still in the pending status.
	ListOpen(ctx context.Context) ([]domain.ShipmentRequest, error)

	// ListCandidates returns pending shipments matching the filter.
	ListCandidates(ctx context.Context, f CandidateFilter) ([]domain.ShipmentRequest, error)
}
