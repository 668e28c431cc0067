package matching

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/match"
	"github.com/fast-shipment/matching-api/internal/ports/out/clock"
	"github.com/fast-shipment/matching-api/internal/ports/out/eventbus"
	"github.com/fast-shipment/matching-api/internal/ports/out/matchcache"
	"github.com/fast-shipment/matching-api/internal/ports/out/matchrepo"
	"github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

const defaultFetchTimeout = 3 * time.Second

// Options configures the optional collaborators of the matching service.
// Bus and Cache may be nil: events are then dropped and every pass is live.
type Options struct {
	Config       match.Config
	Bus          eventbus.Publisher
	Cache        matchcache.Cache
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

type Service struct {
	offers    offerrepo.Repository
	shipments shipmentrepo.Repository
	matches   matchrepo.Repository
	clk       clock.Clock

	cfg          match.Config
	bus          eventbus.Publisher
	cache        matchcache.Cache
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	log          *slog.Logger

	newMatchID func() domain.MatchID
}

func NewService(offers offerrepo.Repository, shipments shipmentrepo.Repository, matches matchrepo.Repository, clk clock.Clock, opts Options) *Service {
	cfg := opts.Config
	if cfg.Weights == (match.Weights{}) {
		cfg = match.DefaultConfig()
	}
	ft := opts.FetchTimeout
	if ft <= 0 {
		ft = defaultFetchTimeout
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		offers:       offers,
		shipments:    shipments,
		matches:      matches,
		clk:          clk,
		cfg:          cfg,
		bus:          opts.Bus,
		cache:        opts.Cache,
		cacheTTL:     ttl,
		fetchTimeout: ft,
		log:          log,
		newMatchID: func() domain.MatchID {
			return domain.MatchID(uuid.NewString())
		},
	}
}

// SetNewMatchIDForTest overrides match ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewMatchIDForTest(fn func() domain.MatchID) {
	if fn != nil {
		s.newMatchID = fn
	}
}

// FindMatchesForOffer previews the ranked pending shipments for one of the
// caller's offers. Results may come from the suggestion cache.
func (s *Service) FindMatchesForOffer(ctx context.Context, caller domain.UserID, offerID domain.OfferID) ([]Suggestion, error) {
	offer, err := s.getOwnedOffer(ctx, caller, offerID)
	if err != nil {
		return nil, err
	}
	if ss, ok := s.cachedForOffer(ctx, offer); ok {
		return ss, nil
	}
	ss := s.scoreShipmentsFor(ctx, offer)
	s.cachePut(ctx, matchcache.OfferKey(offer.ID), ss)
	return ss, nil
}

// FindMatchesForShipment previews the ranked available offers for one of the
// caller's shipments.
func (s *Service) FindMatchesForShipment(ctx context.Context, caller domain.UserID, shipmentID domain.ShipmentID) ([]Suggestion, error) {
	sh, err := s.getOwnedShipment(ctx, caller, shipmentID)
	if err != nil {
		return nil, err
	}
	if ss, ok := s.cachedForShipment(ctx, sh); ok {
		return ss, nil
	}
	ss := s.scoreOffersFor(ctx, sh)
	s.cachePut(ctx, matchcache.ShipmentKey(sh.ID), ss)
	return ss, nil
}

// RunPassForOffer scores candidates for the offer and persists each surviving
// suggestion as a suggested match. Re-running the pass is safe: duplicate
// pairs are skipped via the store's uniqueness constraint.
func (s *Service) RunPassForOffer(ctx context.Context, caller domain.UserID, offerID domain.OfferID) (PassResult, error) {
	offer, err := s.getOwnedOffer(ctx, caller, offerID)
	if err != nil {
		return PassResult{}, err
	}
	ss := s.scoreShipmentsFor(ctx, offer)
	res := s.persistSuggestions(ctx, ss)
	s.cacheInvalidate(ctx, matchcache.OfferKey(offer.ID))
	return res, nil
}

// RunPassForShipment is the symmetric persisting pass anchored on a shipment.
func (s *Service) RunPassForShipment(ctx context.Context, caller domain.UserID, shipmentID domain.ShipmentID) (PassResult, error) {
	sh, err := s.getOwnedShipment(ctx, caller, shipmentID)
	if err != nil {
		return PassResult{}, err
	}
	ss := s.scoreOffersFor(ctx, sh)
	res := s.persistSuggestions(ctx, ss)
	s.cacheInvalidate(ctx, matchcache.ShipmentKey(sh.ID))
	return res, nil
}

// InvalidateSuggestionsForOffer drops the offer's cached preview. The offers
// service calls this after any write to the record so the next preview scores
// against current data.
func (s *Service) InvalidateSuggestionsForOffer(ctx context.Context, id domain.OfferID) {
	s.cacheInvalidate(ctx, matchcache.OfferKey(id))
}

// InvalidateSuggestionsForShipment is the shipment-side counterpart.
func (s *Service) InvalidateSuggestionsForShipment(ctx context.Context, id domain.ShipmentID) {
	s.cacheInvalidate(ctx, matchcache.ShipmentKey(id))
}

func (s *Service) scoreShipmentsFor(ctx context.Context, offer domain.TransportOffer) []Suggestion {
	passesTotal.WithLabelValues("offer").Inc()

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	candidates, err := s.shipments.ListCandidates(fctx, shipmentrepo.CandidateFilter{
		FromCountry:         offer.Route.FromCountry,
		ToCountry:           offer.Route.ToCountry,
		NeededDateOnOrAfter: s.today(),
	})
	if err != nil {
		// Lossy but available: a failed fetch means "no matches found".
		fetchFailuresTotal.Inc()
		s.log.Warn("candidate fetch failed", "anchor", "offer", "offer_id", offer.ID, "error", err)
		return nil
	}

	out := make([]Suggestion, 0, len(candidates))
	for _, sh := range candidates {
		sg, ok := s.scorePair(offer, sh)
		if !ok {
			continue
		}
		out = append(out, sg)
	}
	return s.rank(out)
}

func (s *Service) scoreOffersFor(ctx context.Context, sh domain.ShipmentRequest) []Suggestion {
	passesTotal.WithLabelValues("shipment").Inc()

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	candidates, err := s.offers.ListCandidates(fctx, offerrepo.CandidateFilter{
		FromCountry:       sh.Route.FromCountry,
		ToCountry:         sh.Route.ToCountry,
		TripDateOnOrAfter: s.today(),
	})
	if err != nil {
		fetchFailuresTotal.Inc()
		s.log.Warn("candidate fetch failed", "anchor", "shipment", "shipment_id", sh.ID, "error", err)
		return nil
	}

	out := make([]Suggestion, 0, len(candidates))
	for _, offer := range candidates {
		sg, ok := s.scorePair(offer, sh)
		if !ok {
			continue
		}
		out = append(out, sg)
	}
	return s.rank(out)
}

// scorePair applies the exclusion rules (missing dates, over-capacity policy,
// threshold) and builds a suggestion for survivors.
func (s *Service) scorePair(offer domain.TransportOffer, sh domain.ShipmentRequest) (Suggestion, bool) {
	if offer.TripDate.IsZero() || sh.NeededDate.IsZero() {
		return Suggestion{}, false
	}
	if s.cfg.OverCapacity == match.OverCapacityExclude && match.OverCapacity(offer, sh) {
		return Suggestion{}, false
	}
	candidatesScoredTotal.Inc()
	score, b := match.Score(offer, sh, s.cfg)
	if score < s.cfg.MinScore {
		return Suggestion{}, false
	}
	return Suggestion{
		Offer:     offer,
		Shipment:  sh,
		Score:     score,
		Breakdown: b,
		Reasons:   match.Reasons(offer, sh, b),
	}, true
}

// rank orders suggestions best-first: score descending, then newest candidate,
// then IDs for full determinism, and truncates to the configured top-N.
func (s *Service) rank(ss []Suggestion) []Suggestion {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Score != ss[j].Score {
			return ss[i].Score > ss[j].Score
		}
		ci, cj := candidateCreatedAt(ss[i]), candidateCreatedAt(ss[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		if ss[i].Offer.ID != ss[j].Offer.ID {
			return ss[i].Offer.ID < ss[j].Offer.ID
		}
		return ss[i].Shipment.ID < ss[j].Shipment.ID
	})
	if s.cfg.TopN > 0 && len(ss) > s.cfg.TopN {
		ss = ss[:s.cfg.TopN]
	}
	return ss
}

// candidateCreatedAt picks the later CreatedAt of the pair, which is the
// candidate side regardless of pass direction (the anchor predates the pass).
func candidateCreatedAt(sg Suggestion) time.Time {
	if sg.Shipment.CreatedAt.After(sg.Offer.CreatedAt) {
		return sg.Shipment.CreatedAt
	}
	return sg.Offer.CreatedAt
}

func (s *Service) persistSuggestions(ctx context.Context, ss []Suggestion) PassResult {
	res := PassResult{Suggestions: ss}
	now := s.clk.Now().UTC()
	for i := range ss {
		m := domain.Match{
			ID:         s.newMatchID(),
			OfferID:    ss[i].Offer.ID,
			ShipmentID: ss[i].Shipment.ID,
			Score:      ss[i].Score,
			Status:     domain.MatchStatusSuggested,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err := s.matches.Insert(ctx, m)
		switch {
		case err == nil:
			res.Created++
			suggestionsPersistedTotal.Inc()
			ss[i].MatchID = m.ID
			s.publish(ctx, eventbus.MatchEvent{
				Type:       eventbus.EventMatchSuggested,
				MatchID:    m.ID,
				OfferID:    m.OfferID,
				ShipmentID: m.ShipmentID,
				Score:      m.Score,
				OccurredAt: now,
			})
		case errors.Is(err, matchrepo.ErrAlreadyExists):
			// The pair was matched by an earlier pass; surface its row.
			res.Existing++
			if prev, gerr := s.matches.GetByPair(ctx, m.OfferID, m.ShipmentID); gerr == nil {
				ss[i].MatchID = prev.ID
			}
		default:
			// One bad insert must not block the rest of the batch.
			s.log.Error("persist match failed", "offer_id", m.OfferID, "shipment_id", m.ShipmentID, "error", err)
		}
	}
	return res
}

// GetMatch returns a match visible to the caller (a party to either side).
func (s *Service) GetMatch(ctx context.Context, caller domain.UserID, id domain.MatchID) (domain.Match, error) {
	m, _, _, err := s.getPartyMatch(ctx, caller, id)
	return m, err
}

// AcceptMatch moves a suggested match to accepted and marks the shipment
// matched. Either party may accept.
func (s *Service) AcceptMatch(ctx context.Context, caller domain.UserID, id domain.MatchID) (domain.Match, error) {
	m, _, sh, err := s.transition(ctx, caller, id, domain.MatchStatusAccepted)
	if err != nil {
		return domain.Match{}, err
	}
	if sh.Status == domain.ShipmentStatusPending {
		sh.Status = domain.ShipmentStatusMatched
		sh.UpdatedAt = s.clk.Now().UTC()
		if serr := s.shipments.Save(ctx, sh); serr != nil {
			// The match is accepted either way; the shipment row catches up
			// on the next status write.
			s.log.Error("mark shipment matched failed", "shipment_id", sh.ID, "error", serr)
		}
		s.cacheInvalidate(ctx, matchcache.ShipmentKey(sh.ID))
	}
	return m, nil
}

// RejectMatch moves a suggested match to rejected.
func (s *Service) RejectMatch(ctx context.Context, caller domain.UserID, id domain.MatchID) (domain.Match, error) {
	m, _, _, err := s.transition(ctx, caller, id, domain.MatchStatusRejected)
	if err != nil {
		return domain.Match{}, err
	}
	return m, nil
}

// UpdateMatchStatus applies any legal lifecycle transition requested by a
// party to the match.
func (s *Service) UpdateMatchStatus(ctx context.Context, caller domain.UserID, id domain.MatchID, status domain.MatchStatus) (domain.Match, error) {
	if !domain.ValidMatchStatus(status) {
		return domain.Match{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid status", Details: map[string]any{"status": "unknown match status"}}
	}
	m, _, sh, err := s.transition(ctx, caller, id, status)
	if err != nil {
		return domain.Match{}, err
	}
	if status == domain.MatchStatusAccepted && sh.Status == domain.ShipmentStatusPending {
		sh.Status = domain.ShipmentStatusMatched
		sh.UpdatedAt = s.clk.Now().UTC()
		if serr := s.shipments.Save(ctx, sh); serr != nil {
			s.log.Error("mark shipment matched failed", "shipment_id", sh.ID, "error", serr)
		}
		s.cacheInvalidate(ctx, matchcache.ShipmentKey(sh.ID))
	}
	return m, nil
}

// ListMatchesForOffer lists matches on one of the caller's offers, best score
// first.
func (s *Service) ListMatchesForOffer(ctx context.Context, caller domain.UserID, offerID domain.OfferID) ([]domain.Match, error) {
	if _, err := s.getOwnedOffer(ctx, caller, offerID); err != nil {
		return nil, err
	}
	return s.matches.ListByOffer(ctx, offerID)
}

// ListMatchesForShipment lists matches on one of the caller's shipments.
func (s *Service) ListMatchesForShipment(ctx context.Context, caller domain.UserID, shipmentID domain.ShipmentID) ([]domain.Match, error) {
	if _, err := s.getOwnedShipment(ctx, caller, shipmentID); err != nil {
		return nil, err
	}
	return s.matches.ListByShipment(ctx, shipmentID)
}

// ListMyMatches collects matches where the caller owns either side.
func (s *Service) ListMyMatches(ctx context.Context, caller domain.UserID) ([]domain.Match, error) {
	seen := map[domain.MatchID]struct{}{}
	var out []domain.Match

	offers, err := s.offers.ListByUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		ms, err := s.matches.ListByOffer(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			if _, ok := seen[m.ID]; !ok {
				seen[m.ID] = struct{}{}
				out = append(out, m)
			}
		}
	}

	shipments, err := s.shipments.ListByUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	for _, sh := range shipments {
		ms, err := s.matches.ListByShipment(ctx, sh.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			if _, ok := seen[m.ID]; !ok {
				seen[m.ID] = struct{}{}
				out = append(out, m)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// transition loads the match, authorizes the caller as a party, checks the
// lifecycle rule, saves, and publishes the corresponding event.
func (s *Service) transition(ctx context.Context, caller domain.UserID, id domain.MatchID, to domain.MatchStatus) (domain.Match, domain.TransportOffer, domain.ShipmentRequest, error) {
	m, offer, sh, err := s.getPartyMatch(ctx, caller, id)
	if err != nil {
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, err
	}
	if !domain.CanTransitionMatch(m.Status, to) {
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, &Error{
			Status: 409, Code: "MATCH_INVALID_TRANSITION",
			Message: "match status transition not allowed",
			Details: map[string]any{"from": string(m.Status), "to": string(to)},
		}
	}
	now := s.clk.Now().UTC()
	m.Status = to
	m.UpdatedAt = now
	if err := s.matches.Save(ctx, m); err != nil {
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, err
	}

	if evType, ok := eventForStatus(to); ok {
		s.publish(ctx, eventbus.MatchEvent{
			Type:       evType,
			MatchID:    m.ID,
			OfferID:    m.OfferID,
			ShipmentID: m.ShipmentID,
			Score:      m.Score,
			OccurredAt: now,
		})
	}
	return m, offer, sh, nil
}

func eventForStatus(st domain.MatchStatus) (eventbus.EventType, bool) {
	switch st {
	case domain.MatchStatusAccepted:
		return eventbus.EventMatchAccepted, true
	case domain.MatchStatusRejected:
		return eventbus.EventMatchRejected, true
	case domain.MatchStatusCancelled:
		return eventbus.EventMatchCancelled, true
	}
	return "", false
}

func (s *Service) getPartyMatch(ctx context.Context, caller domain.UserID, id domain.MatchID) (domain.Match, domain.TransportOffer, domain.ShipmentRequest, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, matchrepo.ErrNotFound) {
			return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, notFoundMatch()
		}
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, err
	}
	offer, err := s.offers.GetByID(ctx, m.OfferID)
	if err != nil {
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, err
	}
	sh, err := s.shipments.GetByID(ctx, m.ShipmentID)
	if err != nil {
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, err
	}
	if offer.UserID != caller && sh.UserID != caller {
		// 404 for non-parties: match existence is not disclosed.
		return domain.Match{}, domain.TransportOffer{}, domain.ShipmentRequest{}, notFoundMatch()
	}
	return m, offer, sh, nil
}

func notFoundMatch() *Error {
	return &Error{Status: 404, Code: "MATCH_NOT_FOUND", Message: "match not found"}
}

func (s *Service) getOwnedOffer(ctx context.Context, caller domain.UserID, id domain.OfferID) (domain.TransportOffer, error) {
	o, err := s.offers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, offerrepo.ErrNotFound) {
			return domain.TransportOffer{}, &Error{Status: 404, Code: "OFFER_NOT_FOUND", Message: "offer not found"}
		}
		return domain.TransportOffer{}, err
	}
	if o.UserID != caller {
		return domain.TransportOffer{}, &Error{Status: 404, Code: "OFFER_NOT_FOUND", Message: "offer not found"}
	}
	return o, nil
}

func (s *Service) getOwnedShipment(ctx context.Context, caller domain.UserID, id domain.ShipmentID) (domain.ShipmentRequest, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shipmentrepo.ErrNotFound) {
			return domain.ShipmentRequest{}, &Error{Status: 404, Code: "SHIPMENT_NOT_FOUND", Message: "shipment not found"}
		}
		return domain.ShipmentRequest{}, err
	}
	if sh.UserID != caller {
		return domain.ShipmentRequest{}, &Error{Status: 404, Code: "SHIPMENT_NOT_FOUND", Message: "shipment not found"}
	}
	return sh, nil
}

func (s *Service) publish(ctx context.Context, ev eventbus.MatchEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("publish match event failed", "type", ev.Type, "match_id", ev.MatchID, "error", err)
	}
}

func (s *Service) today() time.Time {
	return s.clk.Now().UTC().Truncate(24 * time.Hour)
}

// cachedForOffer returns cached suggestions for the offer when every
// referenced shipment still loads; otherwise the caller runs a live pass.
func (s *Service) cachedForOffer(ctx context.Context, offer domain.TransportOffer) ([]Suggestion, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.Get(ctx, matchcache.OfferKey(offer.ID))
	if err != nil || !ok {
		return nil, false
	}
	out := make([]Suggestion, 0, len(cached))
	for _, c := range cached {
		sh, err := s.shipments.GetByID(ctx, c.ShipmentID)
		if err != nil {
			return nil, false
		}
		out = append(out, Suggestion{Offer: offer, Shipment: sh, Score: c.Score, Breakdown: c.Breakdown, Reasons: c.Reasons})
	}
	cacheHitsTotal.Inc()
	return out, true
}

func (s *Service) cachedForShipment(ctx context.Context, sh domain.ShipmentRequest) ([]Suggestion, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.Get(ctx, matchcache.ShipmentKey(sh.ID))
	if err != nil || !ok {
		return nil, false
	}
	out := make([]Suggestion, 0, len(cached))
	for _, c := range cached {
		offer, err := s.offers.GetByID(ctx, c.OfferID)
		if err != nil {
			return nil, false
		}
		out = append(out, Suggestion{Offer: offer, Shipment: sh, Score: c.Score, Breakdown: c.Breakdown, Reasons: c.Reasons})
	}
	cacheHitsTotal.Inc()
	return out, true
}

func (s *Service) cachePut(ctx context.Context, key string, ss []Suggestion) {
	if s.cache == nil {
		return
	}
	cached := make([]matchcache.CachedSuggestion, 0, len(ss))
	for _, sg := range ss {
		cached = append(cached, matchcache.CachedSuggestion{
			OfferID:    sg.Offer.ID,
			ShipmentID: sg.Shipment.ID,
			Score:      sg.Score,
			Breakdown:  sg.Breakdown,
			Reasons:    sg.Reasons,
		})
	}
	if err := s.cache.Put(ctx, key, cached, s.cacheTTL); err != nil {
		s.log.Warn("suggestion cache put failed", "key", key, "error", err)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("suggestion cache invalidate failed", "key", key, "error", err)
	}
}
