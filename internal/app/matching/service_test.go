package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	memeventbus "github.com/fast-shipment/matching-api/internal/adapters/memory/eventbus"
	memcache "github.com/fast-shipment/matching-api/internal/adapters/memory/matchcache"
	memmatch "github.com/fast-shipment/matching-api/internal/adapters/memory/matchrepo"
	memoffer "github.com/fast-shipment/matching-api/internal/adapters/memory/offerrepo"
	memshipment "github.com/fast-shipment/matching-api/internal/adapters/memory/shipmentrepo"
	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/app/offers"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/match"
	"github.com/fast-shipment/matching-api/internal/ports/out/eventbus"
	"github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	offers    *memoffer.Repo
	shipments *memshipment.Repo
	matches   *memmatch.Repo
	bus       *memeventbus.Recorder
	cache     *memcache.Cache
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		offers:    memoffer.NewRepo(),
		shipments: memshipment.NewRepo(),
		matches:   memmatch.NewRepo(),
		bus:       memeventbus.NewRecorder(),
	}
	if opts.Bus == nil {
		opts.Bus = f.bus
	}
	if c, ok := opts.Cache.(*memcache.Cache); ok {
		f.cache = c
	}
	f.svc = NewService(f.offers, f.shipments, f.matches, fixedClock{now: testNow}, opts)
	seq := 0
	f.svc.SetNewMatchIDForTest(func() domain.MatchID {
		seq++
		return domain.MatchID(fmt.Sprintf("match-%03d", seq))
	})
	return f
}

func (f *fixture) seedOffer(t *testing.T, o domain.TransportOffer) domain.TransportOffer {
	t.Helper()
	if o.Status == "" {
		o.Status = domain.OfferStatusAvailable
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = testNow.Add(-time.Hour)
	}
	o.UpdatedAt = o.CreatedAt
	if err := f.offers.Create(context.Background(), o); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return o
}

func (f *fixture) seedShipment(t *testing.T, s domain.ShipmentRequest) domain.ShipmentRequest {
	t.Helper()
	if s.Status == "" {
		s.Status = domain.ShipmentStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = testNow.Add(-time.Hour)
	}
	s.UpdatedAt = s.CreatedAt
	if err := f.shipments.Create(context.Background(), s); err != nil {
		t.Fatalf("seed shipment: %v", err)
	}
	return s
}

func riyadhJeddah() domain.Route {
	return domain.Route{FromCountry: "SA", FromCity: "Riyadh", ToCountry: "SA", ToCity: "Jeddah"}
}

func baseOffer(id, user string) domain.TransportOffer {
	return domain.TransportOffer{
		ID:              domain.OfferID(id),
		UserID:          domain.UserID(user),
		Route:           riyadhJeddah(),
		TripDate:        testNow.AddDate(0, 0, 5),
		AvailableWeight: 100,
		CarrierType:     domain.CarrierTruckOwner,
	}
}

func baseShipment(id, user string) domain.ShipmentRequest {
	return domain.ShipmentRequest{
		ID:          domain.ShipmentID(id),
		UserID:      domain.UserID(user),
		Route:       riyadhJeddah(),
		NeededDate:  testNow.AddDate(0, 0, 5),
		Weight:      40,
		ShipperType: domain.ShipperSmallBusiness,
	}
}

func TestFindMatchesForOffer_RanksAndFilters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))

	// Same date, same route: top score.
	best := f.seedShipment(t, baseShipment("ship-best", "shipper-1"))
	// Five days off: lower date sub-score.
	worse := baseShipment("ship-worse", "shipper-2")
	worse.NeededDate = testNow.AddDate(0, 0, 10)
	worse = f.seedShipment(t, worse)
	// Different destination country: never a candidate.
	abroad := baseShipment("ship-abroad", "shipper-3")
	abroad.Route.ToCountry = "AE"
	abroad.Route.ToCity = "Dubai"
	f.seedShipment(t, abroad)
	// Needed before today: filtered by the repo date floor.
	stale := baseShipment("ship-stale", "shipper-4")
	stale.NeededDate = testNow.AddDate(0, 0, -2)
	f.seedShipment(t, stale)
	// Already matched: not a candidate.
	taken := baseShipment("ship-taken", "shipper-5")
	taken.Status = domain.ShipmentStatusMatched
	f.seedShipment(t, taken)

	got, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("FindMatchesForOffer: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(got))
	}
	if got[0].Shipment.ID != best.ID || got[1].Shipment.ID != worse.ID {
		t.Fatalf("order = %s, %s; want %s, %s", got[0].Shipment.ID, got[1].Shipment.ID, best.ID, worse.ID)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %d then %d", got[0].Score, got[1].Score)
	}
	if got[0].Score != 96 {
		t.Fatalf("best score = %d, want 96", got[0].Score)
	}
	if len(got[0].Reasons) == 0 {
		t.Fatal("expected reasons on top suggestion")
	}
}

func TestFindMatchesForOffer_ThresholdDropsWeakCandidates(t *testing.T) {
	t.Parallel()
	cfg := match.DefaultConfig()
	cfg.MinScore = 90
	f := newFixture(t, Options{Config: cfg})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))

	f.seedShipment(t, baseShipment("ship-strong", "shipper-1"))
	weak := baseShipment("ship-weak", "shipper-2")
	weak.NeededDate = testNow.AddDate(0, 0, 12)
	f.seedShipment(t, weak)

	got, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("FindMatchesForOffer: %v", err)
	}
	if len(got) != 1 || got[0].Shipment.ID != "ship-strong" {
		t.Fatalf("got %d suggestions, want only ship-strong", len(got))
	}
}

func TestFindMatchesForOffer_TopNTruncates(t *testing.T) {
	t.Parallel()
	cfg := match.DefaultConfig()
	cfg.TopN = 2
	f := newFixture(t, Options{Config: cfg})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	for i := 0; i < 5; i++ {
		f.seedShipment(t, baseShipment(fmt.Sprintf("ship-%d", i), "shipper-1"))
	}

	got, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("FindMatchesForOffer: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(got))
	}
}

func TestFindMatchesForOffer_OverCapacityExcludePolicy(t *testing.T) {
	t.Parallel()
	cfg := match.DefaultConfig()
	cfg.OverCapacity = match.OverCapacityExclude
	f := newFixture(t, Options{Config: cfg})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))

	heavy := baseShipment("ship-heavy", "shipper-1")
	heavy.Weight = offer.AvailableWeight + 1
	f.seedShipment(t, heavy)
	f.seedShipment(t, baseShipment("ship-fits", "shipper-2"))

	got, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("FindMatchesForOffer: %v", err)
	}
	if len(got) != 1 || got[0].Shipment.ID != "ship-fits" {
		t.Fatalf("got %d suggestions, want only ship-fits", len(got))
	}
}

func TestFindMatchesForOffer_ForeignOfferNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))

	_, err := f.svc.FindMatchesForOffer(context.Background(), "someone-else", offer.ID)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Fatalf("err = %v, want 404 app error", err)
	}
}

func TestFindMatchesForOffer_ServesFromCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{Cache: memcache.NewCache()})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	sh := f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	first, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("first find: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first pass suggestions = %d, want 1", len(first))
	}

	// Push the shipment out of the live candidate window. A cached answer
	// still returns it; a live pass would not.
	sh.NeededDate = testNow.AddDate(0, 0, -30)
	if err := f.shipments.Save(context.Background(), sh); err != nil {
		t.Fatalf("save shipment: %v", err)
	}

	second, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("second find: %v", err)
	}
	if len(second) != 1 || second[0].Shipment.ID != sh.ID || second[0].Score != first[0].Score {
		t.Fatalf("cached result mismatch: %+v", second)
	}
	// The hit replays the stored breakdown; it is never recomputed against
	// records that may have changed since the pass.
	if second[0].Breakdown != first[0].Breakdown {
		t.Fatalf("cached breakdown = %+v, want %+v", second[0].Breakdown, first[0].Breakdown)
	}
}

func TestFindMatchesForOffer_AnchorUpdateDropsCachedPreview(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{Cache: memcache.NewCache()})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	offersSvc := offers.NewService(f.offers, fixedClock{now: testNow},
		offers.WithChangeListener(f.svc.InvalidateSuggestionsForOffer))

	first, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("first find: %v", err)
	}
	if len(first) != 1 || first[0].Score != 96 {
		t.Fatalf("first preview = %+v, want one suggestion scoring 96", first)
	}

	// Pushing the trip date two months out zeroes the date sub-score.
	if _, err := offersSvc.UpdateOffer(context.Background(), "carrier-1", offer.ID, offers.UpdateOfferInput{
		TripDate: field.Some(testNow.AddDate(0, 0, 65)),
	}); err != nil {
		t.Fatalf("update offer: %v", err)
	}

	second, err := f.svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("second find: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second preview suggestions = %d, want 1", len(second))
	}
	if second[0].Score != 66 || second[0].Breakdown.Date != 0 {
		t.Fatalf("post-update preview = score %d breakdown %+v, want live rescore 66 with date 0",
			second[0].Score, second[0].Breakdown)
	}
}

type failingShipmentRepo struct {
	*memshipment.Repo
}

func (r *failingShipmentRepo) ListCandidates(context.Context, shipmentrepo.CandidateFilter) ([]domain.ShipmentRequest, error) {
	return nil, errors.New("candidate store unavailable")
}

type stalledOfferRepo struct {
	*memoffer.Repo
}

func (r *stalledOfferRepo) ListCandidates(ctx context.Context, _ offerrepo.CandidateFilter) ([]domain.TransportOffer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFindMatchesForOffer_FetchFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	offerRepo := memoffer.NewRepo()
	svc := NewService(offerRepo, &failingShipmentRepo{memshipment.NewRepo()}, memmatch.NewRepo(), fixedClock{now: testNow}, Options{})

	offer := baseOffer("offer-1", "carrier-1")
	offer.Status = domain.OfferStatusAvailable
	offer.CreatedAt = testNow.Add(-time.Hour)
	if err := offerRepo.Create(context.Background(), offer); err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	got, err := svc.FindMatchesForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("expected a degraded empty result, got error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("suggestions = %d, want 0", len(got))
	}
}

func TestFindMatchesForShipment_FetchTimeoutDegradesToEmpty(t *testing.T) {
	t.Parallel()
	shipmentRepo := memshipment.NewRepo()
	svc := NewService(&stalledOfferRepo{memoffer.NewRepo()}, shipmentRepo, memmatch.NewRepo(), fixedClock{now: testNow}, Options{
		FetchTimeout: 10 * time.Millisecond,
	})

	sh := baseShipment("ship-1", "shipper-1")
	sh.Status = domain.ShipmentStatusPending
	sh.CreatedAt = testNow.Add(-time.Hour)
	if err := shipmentRepo.Create(context.Background(), sh); err != nil {
		t.Fatalf("seed shipment: %v", err)
	}

	got, err := svc.FindMatchesForShipment(context.Background(), "shipper-1", sh.ID)
	if err != nil {
		t.Fatalf("expected a degraded empty result, got error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("suggestions = %d, want 0", len(got))
	}
}

func TestRunPassForOffer_PersistsOnceAndPublishes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-1", "shipper-1"))
	f.seedShipment(t, baseShipment("ship-2", "shipper-2"))

	res, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if res.Created != 2 || res.Existing != 0 {
		t.Fatalf("first pass created=%d existing=%d, want 2/0", res.Created, res.Existing)
	}
	for _, sg := range res.Suggestions {
		if sg.MatchID == "" {
			t.Fatalf("suggestion for %s has no match ID", sg.Shipment.ID)
		}
	}
	evs := f.bus.Events()
	if len(evs) != 2 || evs[0].Type != eventbus.EventMatchSuggested {
		t.Fatalf("events = %+v, want two match.suggested", evs)
	}

	res2, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if res2.Created != 0 || res2.Existing != 2 {
		t.Fatalf("second pass created=%d existing=%d, want 0/2", res2.Created, res2.Existing)
	}
	for i := range res2.Suggestions {
		if res2.Suggestions[i].MatchID != res.Suggestions[i].MatchID {
			t.Fatalf("rerun resolved different match ID for %s", res2.Suggestions[i].Shipment.ID)
		}
	}
	if got := len(f.bus.Events()); got != 2 {
		t.Fatalf("events after rerun = %d, want still 2", got)
	}
}

func TestRunPass_ScoreSymmetricAcrossDirections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	worse := baseShipment("ship-1", "shipper-1")
	worse.NeededDate = testNow.AddDate(0, 0, 8)
	sh := f.seedShipment(t, worse)

	fromOffer, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil {
		t.Fatalf("offer pass: %v", err)
	}
	fromShipment, err := f.svc.RunPassForShipment(context.Background(), "shipper-1", sh.ID)
	if err != nil {
		t.Fatalf("shipment pass: %v", err)
	}
	if len(fromOffer.Suggestions) != 1 || len(fromShipment.Suggestions) != 1 {
		t.Fatalf("want one suggestion per direction, got %d and %d", len(fromOffer.Suggestions), len(fromShipment.Suggestions))
	}
	if fromOffer.Suggestions[0].Score != fromShipment.Suggestions[0].Score {
		t.Fatalf("asymmetric scores: %d vs %d", fromOffer.Suggestions[0].Score, fromShipment.Suggestions[0].Score)
	}
	if fromShipment.Created != 0 || fromShipment.Existing != 1 {
		t.Fatalf("reverse pass should reuse the pair, got created=%d existing=%d", fromShipment.Created, fromShipment.Existing)
	}
}

func TestAcceptMatch_MarksShipmentMatched(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	sh := f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	res, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil || len(res.Suggestions) != 1 {
		t.Fatalf("pass: %v (%d suggestions)", err, len(res.Suggestions))
	}
	matchID := res.Suggestions[0].MatchID

	m, err := f.svc.AcceptMatch(context.Background(), "shipper-1", matchID)
	if err != nil {
		t.Fatalf("AcceptMatch: %v", err)
	}
	if m.Status != domain.MatchStatusAccepted {
		t.Fatalf("match status = %s, want accepted", m.Status)
	}
	gotSh, err := f.shipments.GetByID(context.Background(), sh.ID)
	if err != nil {
		t.Fatalf("reload shipment: %v", err)
	}
	if gotSh.Status != domain.ShipmentStatusMatched {
		t.Fatalf("shipment status = %s, want matched", gotSh.Status)
	}

	evs := f.bus.Events()
	last := evs[len(evs)-1]
	if last.Type != eventbus.EventMatchAccepted || last.MatchID != matchID {
		t.Fatalf("last event = %+v, want match.accepted for %s", last, matchID)
	}
}

func TestRejectMatch_ThenAcceptConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	res, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil || len(res.Suggestions) != 1 {
		t.Fatalf("pass: %v", err)
	}
	matchID := res.Suggestions[0].MatchID

	if _, err := f.svc.RejectMatch(context.Background(), "carrier-1", matchID); err != nil {
		t.Fatalf("RejectMatch: %v", err)
	}
	_, err = f.svc.AcceptMatch(context.Background(), "shipper-1", matchID)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 409 || appErr.Code != "MATCH_INVALID_TRANSITION" {
		t.Fatalf("err = %v, want 409 MATCH_INVALID_TRANSITION", err)
	}
}

func TestUpdateMatchStatus_FullLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	res, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil || len(res.Suggestions) != 1 {
		t.Fatalf("pass: %v", err)
	}
	matchID := res.Suggestions[0].MatchID

	for _, step := range []domain.MatchStatus{
		domain.MatchStatusAccepted,
		domain.MatchStatusInProgress,
		domain.MatchStatusCompleted,
	} {
		m, err := f.svc.UpdateMatchStatus(context.Background(), "carrier-1", matchID, step)
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
		if m.Status != step {
			t.Fatalf("status = %s, want %s", m.Status, step)
		}
	}

	_, err = f.svc.UpdateMatchStatus(context.Background(), "carrier-1", matchID, domain.MatchStatusCancelled)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 409 {
		t.Fatalf("cancel after completed: err = %v, want 409", err)
	}
}

func TestGetMatch_NonPartyNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	offer := f.seedOffer(t, baseOffer("offer-1", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-1", "shipper-1"))

	res, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offer.ID)
	if err != nil || len(res.Suggestions) != 1 {
		t.Fatalf("pass: %v", err)
	}
	matchID := res.Suggestions[0].MatchID

	if _, err := f.svc.GetMatch(context.Background(), "carrier-1", matchID); err != nil {
		t.Fatalf("party get: %v", err)
	}
	_, err = f.svc.GetMatch(context.Background(), "bystander", matchID)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Fatalf("non-party err = %v, want 404", err)
	}
}

func TestListMyMatches_CollectsBothSides(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	// carrier-1 owns an offer; shipper-1 owns a shipment matched to it and
	// also an offer matched to shipper-2's shipment.
	offerA := f.seedOffer(t, baseOffer("offer-a", "carrier-1"))
	f.seedShipment(t, baseShipment("ship-a", "shipper-1"))
	offerB := f.seedOffer(t, baseOffer("offer-b", "shipper-1"))
	f.seedShipment(t, baseShipment("ship-b", "shipper-2"))

	if _, err := f.svc.RunPassForOffer(context.Background(), "carrier-1", offerA.ID); err != nil {
		t.Fatalf("pass A: %v", err)
	}
	if _, err := f.svc.RunPassForOffer(context.Background(), "shipper-1", offerB.ID); err != nil {
		t.Fatalf("pass B: %v", err)
	}

	// Pairs on the lane: offer-a matched ship-a and ship-b, offer-b matched
	// ship-a and ship-b. shipper-1 is a party to all but (offer-a, ship-b).
	mine, err := f.svc.ListMyMatches(context.Background(), "shipper-1")
	if err != nil {
		t.Fatalf("ListMyMatches: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("matches for shipper-1 = %d, want 3", len(mine))
	}
	for _, m := range mine {
		if m.OfferID == offerA.ID && m.ShipmentID == "ship-b" {
			t.Fatalf("match %s does not involve shipper-1", m.ID)
		}
	}

	stranger, err := f.svc.ListMyMatches(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListMyMatches stranger: %v", err)
	}
	if len(stranger) != 0 {
		t.Fatalf("stranger matches = %d, want 0", len(stranger))
	}
}
