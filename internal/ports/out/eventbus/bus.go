package eventbus

import (
	"context"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
)

type EventType string

const (
	EventMatchSuggested EventType = "match.suggested"
	EventMatchAccepted  EventType = "match.accepted"
	EventMatchRejected  EventType = "match.rejected"
	EventMatchCancelled EventType = "match.cancelled"
)

// MatchEvent is the payload published on match lifecycle changes. Consumers
// (notifications, analytics) live outside this service.
type MatchEvent struct {
	Type       EventType         `json:"type"`
	MatchID    domain.MatchID    `json:"match_id"`
	OfferID    domain.OfferID    `json:"offer_id"`
	ShipmentID domain.ShipmentID `json:"shipment_id"`
	Score      int               `json:"score"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher emits match events. Publishing is best-effort from the caller's
// point of view: a failed publish is logged, never surfaced to the user.
type Publisher interface {
	Publish(ctx context.Context, ev MatchEvent) error
}
