package matching

import (
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/match"
)

// Suggestion is one scored candidate from a matching pass, ordered best-first
// in the pass result.
type Suggestion struct {
	Offer    domain.TransportOffer
	Shipment domain.ShipmentRequest

	Score     int
	Breakdown match.Breakdown
	Reasons   []string

	// MatchID is set when the pass persisted (or found) a match row for this
	// pair; empty for preview-only passes.
	MatchID domain.MatchID
}

// PassResult summarizes a persisting pass.
type PassResult struct {
	Suggestions []Suggestion

	// Created counts newly inserted match rows; pairs that already had a row
	// are counted in Existing (duplicate insert is success-no-op).
	Created  int
	Existing int
}
