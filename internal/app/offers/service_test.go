package offers

import (
	"context"
	"errors"
	"testing"
	"time"

	memoffer "github.com/fast-shipment/matching-api/internal/adapters/memory/offerrepo"
	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memoffer.Repo) {
	t.Helper()
	repo := memoffer.NewRepo()
	svc := NewService(repo, fixedClock{now: testNow})
	svc.SetNewOfferIDForTest(func() domain.OfferID { return "offer-001" })
	return svc, repo
}

func validCreate() CreateOfferInput {
	return CreateOfferInput{
		FromCountry:     "SA",
		FromCity:        "Riyadh",
		ToCountry:       "SA",
		ToCity:          "Jeddah",
		TripDate:        testNow.AddDate(0, 0, 3),
		AvailableWeight: 120,
		CarrierType:     domain.CarrierTruckOwner,
	}
}

func TestCreateOffer_HappyPath(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	price := 2.5
	in := validCreate()
	in.PricePerKg = &price
	in.FromCity = "  Riyadh  "

	o, err := svc.CreateOffer(context.Background(), "carrier-1", in)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if o.ID != "offer-001" || o.UserID != "carrier-1" {
		t.Fatalf("identity = %s/%s", o.ID, o.UserID)
	}
	if o.Status != domain.OfferStatusAvailable {
		t.Fatalf("status = %s, want available", o.Status)
	}
	if o.Route.FromCity != "Riyadh" {
		t.Fatalf("fromCity not trimmed: %q", o.Route.FromCity)
	}
	if o.PricePerKg == nil || *o.PricePerKg != 2.5 {
		t.Fatalf("pricePerKg = %v", o.PricePerKg)
	}
	if !o.CreatedAt.Equal(testNow) {
		t.Fatalf("createdAt = %v, want %v", o.CreatedAt, testNow)
	}
}

func TestCreateOffer_Validation(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	cases := []struct {
		name   string
		mutate func(*CreateOfferInput)
	}{
		{"empty from city", func(in *CreateOfferInput) { in.FromCity = "  " }},
		{"empty to country", func(in *CreateOfferInput) { in.ToCountry = "" }},
		{"unknown carrier type", func(in *CreateOfferInput) { in.CarrierType = "pilot" }},
		{"negative weight", func(in *CreateOfferInput) { in.AvailableWeight = -1 }},
		{"negative price", func(in *CreateOfferInput) { v := -0.5; in.PricePerKg = &v }},
		{"missing date", func(in *CreateOfferInput) { in.TripDate = time.Time{} }},
		{"past date", func(in *CreateOfferInput) { in.TripDate = testNow.AddDate(0, 0, -1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreate()
			tc.mutate(&in)
			_, err := svc.CreateOffer(context.Background(), "carrier-1", in)
			var appErr *Error
			if !errors.As(err, &appErr) || appErr.Status != 422 {
				t.Fatalf("err = %v, want 422 validation error", err)
			}
		})
	}
}

func TestCreateOffer_TodayIsNotPast(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	in := validCreate()
	// Earlier on the same calendar day as the clock.
	in.TripDate = time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)
	if _, err := svc.CreateOffer(context.Background(), "carrier-1", in); err != nil {
		t.Fatalf("same-day offer rejected: %v", err)
	}
}

func TestUpdateOffer_TriStateFields(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	price := 3.0
	in := validCreate()
	in.PricePerKg = &price
	o, err := svc.CreateOffer(context.Background(), "carrier-1", in)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	// Unspecified fields stay untouched; null price clears it.
	got, err := svc.UpdateOffer(context.Background(), "carrier-1", o.ID, UpdateOfferInput{
		AvailableWeight: field.Some(80.0),
		PricePerKg:      field.Null[float64](),
	})
	if err != nil {
		t.Fatalf("UpdateOffer: %v", err)
	}
	if got.AvailableWeight != 80 {
		t.Fatalf("availableWeight = %v, want 80", got.AvailableWeight)
	}
	if got.PricePerKg != nil {
		t.Fatalf("pricePerKg = %v, want cleared", got.PricePerKg)
	}
	if got.TripDate != o.TripDate {
		t.Fatalf("tripDate changed: %v", got.TripDate)
	}

	// Null on a non-nullable field is rejected.
	_, err = svc.UpdateOffer(context.Background(), "carrier-1", o.ID, UpdateOfferInput{
		AvailableWeight: field.Null[float64](),
	})
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 422 {
		t.Fatalf("null weight err = %v, want 422", err)
	}
}

func TestUpdateOffer_OnlyAvailableOffersEditable(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	o, err := svc.CreateOffer(context.Background(), "carrier-1", validCreate())
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if _, err := svc.UpdateOfferStatus(context.Background(), "carrier-1", o.ID, domain.OfferStatusBooked); err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = svc.UpdateOffer(context.Background(), "carrier-1", o.ID, UpdateOfferInput{
		AvailableWeight: field.Some(10.0),
	})
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 409 || appErr.Code != "OFFER_NOT_EDITABLE" {
		t.Fatalf("err = %v, want 409 OFFER_NOT_EDITABLE", err)
	}
}

func TestUpdateOfferStatus_Lifecycle(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	o, err := svc.CreateOffer(context.Background(), "carrier-1", validCreate())
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	for _, step := range []domain.OfferStatus{
		domain.OfferStatusBooked,
		domain.OfferStatusInProgress,
		domain.OfferStatusCompleted,
	} {
		got, err := svc.UpdateOfferStatus(context.Background(), "carrier-1", o.ID, step)
		if err != nil {
			t.Fatalf("transition to %s: %v", step, err)
		}
		if got.Status != step {
			t.Fatalf("status = %s, want %s", got.Status, step)
		}
	}

	// Completed is terminal.
	_, err = svc.UpdateOfferStatus(context.Background(), "carrier-1", o.ID, domain.OfferStatusCancelled)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 409 || appErr.Code != "OFFER_INVALID_TRANSITION" {
		t.Fatalf("err = %v, want 409 OFFER_INVALID_TRANSITION", err)
	}
}

func TestUpdateOfferStatus_BookedCanReopen(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	o, err := svc.CreateOffer(context.Background(), "carrier-1", validCreate())
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if _, err := svc.UpdateOfferStatus(context.Background(), "carrier-1", o.ID, domain.OfferStatusBooked); err != nil {
		t.Fatalf("book: %v", err)
	}
	got, err := svc.UpdateOfferStatus(context.Background(), "carrier-1", o.ID, domain.OfferStatusAvailable)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.Status != domain.OfferStatusAvailable {
		t.Fatalf("status = %s, want available", got.Status)
	}
}

func TestOffer_ForeignAccessReadsAsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	o, err := svc.CreateOffer(context.Background(), "carrier-1", validCreate())
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	_, err = svc.UpdateOffer(context.Background(), "intruder", o.ID, UpdateOfferInput{
		AvailableWeight: field.Some(1.0),
	})
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 404 || appErr.Code != "OFFER_NOT_FOUND" {
		t.Fatalf("update err = %v, want 404 OFFER_NOT_FOUND", err)
	}

	_, err = svc.UpdateOfferStatus(context.Background(), "intruder", o.ID, domain.OfferStatusCancelled)
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Fatalf("status err = %v, want 404", err)
	}
}

func TestListMyOffers_OnlyOwn(t *testing.T) {
	t.Parallel()
	repo := memoffer.NewRepo()
	svc := NewService(repo, fixedClock{now: testNow})
	ids := []domain.OfferID{"o-1", "o-2", "o-3"}
	i := 0
	svc.SetNewOfferIDForTest(func() domain.OfferID { id := ids[i]; i++; return id })

	for _, user := range []domain.UserID{"carrier-1", "carrier-1", "carrier-2"} {
		if _, err := svc.CreateOffer(context.Background(), user, validCreate()); err != nil {
			t.Fatalf("CreateOffer: %v", err)
		}
	}

	mine, err := svc.ListMyOffers(context.Background(), "carrier-1")
	if err != nil {
		t.Fatalf("ListMyOffers: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("offers = %d, want 2", len(mine))
	}
	for _, o := range mine {
		if o.UserID != "carrier-1" {
			t.Fatalf("foreign offer %s in listing", o.ID)
		}
	}
}
