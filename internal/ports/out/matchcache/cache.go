package matchcache

import (
	"context"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/match"
)

// CachedSuggestion is the cache representation of one scored candidate. The
// breakdown is stored alongside the score so a cache hit reproduces the
// original pass verbatim instead of mixing cached and recomputed numbers.
type CachedSuggestion struct {
	OfferID    domain.OfferID    `json:"offer_id"`
	ShipmentID domain.ShipmentID `json:"shipment_id"`
	Score      int               `json:"score"`
	Breakdown  match.Breakdown   `json:"breakdown"`
	Reasons    []string          `json:"reasons,omitempty"`
}

// Cache holds recent suggestion lists keyed by anchor record. Misses and
// errors are equivalent to the caller: both fall through to a live scoring
// pass.
type Cache interface {
	Get(ctx context.Context, key string) ([]CachedSuggestion, bool, error)
	Put(ctx context.Context, key string, ss []CachedSuggestion, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// OfferKey and ShipmentKey build the cache keys for the two pass directions.
func OfferKey(id domain.OfferID) string       { return "suggestions:offer:" + string(id) }
func ShipmentKey(id domain.ShipmentID) string { return "suggestions:shipment:" + string(id) }
