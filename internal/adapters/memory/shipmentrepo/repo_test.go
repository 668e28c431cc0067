package shipmentrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

var base = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func shipment(id string, mutate func(*domain.ShipmentRequest)) domain.ShipmentRequest {
	s := domain.ShipmentRequest{
		ID:          domain.ShipmentID(id),
		UserID:      "shipper-1",
		Route:       domain.Route{FromCountry: "SA", FromCity: "Riyadh", ToCountry: "SA", ToCity: "Jeddah"},
		NeededDate:  base.AddDate(0, 0, 5),
		Weight:      40,
		ShipperType: domain.ShipperSmallBusiness,
		Status:      domain.ShipmentStatusPending,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func TestCreate_DuplicateID(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	ctx := context.Background()

	if err := r.Create(ctx, shipment("s-1", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(ctx, shipment("s-1", nil)); !errors.Is(err, shipmentrepo.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSave_UnknownID(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	if err := r.Save(context.Background(), shipment("ghost", nil)); !errors.Is(err, shipmentrepo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	ctx := context.Background()

	budget := 120.0
	if err := r.Create(ctx, shipment("s-1", func(s *domain.ShipmentRequest) { s.MaxPrice = &budget })); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := r.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	*got.MaxPrice = 1

	again, err := r.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if *again.MaxPrice != 120.0 {
		t.Fatalf("stored budget mutated through returned pointer: %v", *again.MaxPrice)
	}
}

func TestListCandidates_FiltersAndOrders(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	ctx := context.Background()

	seed := []domain.ShipmentRequest{
		shipment("s-old", func(s *domain.ShipmentRequest) { s.CreatedAt = base.Add(-2 * time.Hour) }),
		shipment("s-new", func(s *domain.ShipmentRequest) { s.CreatedAt = base.Add(-1 * time.Hour) }),
		shipment("s-matched", func(s *domain.ShipmentRequest) { s.Status = domain.ShipmentStatusMatched }),
		shipment("s-abroad", func(s *domain.ShipmentRequest) { s.Route.ToCountry = "AE" }),
		shipment("s-past", func(s *domain.ShipmentRequest) { s.NeededDate = base.AddDate(0, 0, -1) }),
	}
	for _, s := range seed {
		if err := r.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.ID, err)
		}
	}

	got, err := r.ListCandidates(ctx, shipmentrepo.CandidateFilter{
		FromCountry:         "sa", // country comparison is case-insensitive
		ToCountry:           "SA",
		NeededDateOnOrAfter: base,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].ID != "s-new" || got[1].ID != "s-old" {
		t.Fatalf("order = %s, %s; want s-new, s-old", got[0].ID, got[1].ID)
	}
}

func TestListOpen_SkipsNonPending(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	ctx := context.Background()

	if err := r.Create(ctx, shipment("s-1", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(ctx, shipment("s-2", func(s *domain.ShipmentRequest) { s.Status = domain.ShipmentStatusDelivered })); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s-1" {
		t.Fatalf("got %v, want only s-1", got)
	}
}

func TestListByUser(t *testing.T) {
	t.Parallel()
	r := NewRepo()
	ctx := context.Background()

	if err := r.Create(ctx, shipment("s-1", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Create(ctx, shipment("s-2", func(s *domain.ShipmentRequest) { s.UserID = "shipper-2" })); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.ListByUser(ctx, "shipper-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s-1" {
		t.Fatalf("got %v, want only s-1", got)
	}
}
