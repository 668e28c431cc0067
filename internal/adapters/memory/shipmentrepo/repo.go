package shipmentrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

// Repo is an in-memory implementation of shipmentrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ShipmentID]domain.ShipmentRequest
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.ShipmentID]domain.ShipmentRequest),
	}
}

func (r *Repo) Create(ctx context.Context, s domain.ShipmentRequest) error {
	_ = ctx
	if s.ID == "" {
		return shipmentrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; ok {
		return shipmentrepo.ErrAlreadyExists
	}
	r.byID[s.ID] = cloneShipment(s)
	return nil
}

func (r *Repo) Save(ctx context.Context, s domain.ShipmentRequest) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return shipmentrepo.ErrNotFound
	}
	r.byID[s.ID] = cloneShipment(s)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ShipmentID) (domain.ShipmentRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.ShipmentRequest{}, shipmentrepo.ErrNotFound
	}
	return cloneShipment(s), nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.ShipmentRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ShipmentRequest, 0)
	for _, s := range r.byID {
		if s.UserID == user {
			out = append(out, cloneShipment(s))
		}
	}
	sortShipments(out)
	return out, nil
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.ShipmentRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ShipmentRequest, 0)
	for _, s := range r.byID {
		if s.Status == domain.ShipmentStatusPending {
			out = append(out, cloneShipment(s))
		}
	}
	sortShipments(out)
	return out, nil
}

func (r *Repo) ListCandidates(ctx context.Context, f shipmentrepo.CandidateFilter) ([]domain.ShipmentRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ShipmentRequest, 0)
	for _, s := range r.byID {
		if s.Status != domain.ShipmentStatusPending {
			continue
		}
		if !countryEqual(s.Route.FromCountry, f.FromCountry) || !countryEqual(s.Route.ToCountry, f.ToCountry) {
			continue
		}
		if !f.NeededDateOnOrAfter.IsZero() && s.NeededDate.Before(f.NeededDateOnOrAfter) {
			continue
		}
		out = append(out, cloneShipment(s))
	}
	sortShipments(out)
	return out, nil
}

func countryEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// sortShipments orders newest-created first, ID ascending on ties.
func sortShipments(ss []domain.ShipmentRequest) {
	sort.SliceStable(ss, func(i, j int) bool {
		if !ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].CreatedAt.After(ss[j].CreatedAt)
		}
		return ss[i].ID < ss[j].ID
	})
}

func cloneShipment(s domain.ShipmentRequest) domain.ShipmentRequest {
	cp := s
	if s.MaxPrice != nil {
		v := *s.MaxPrice
		cp.MaxPrice = &v
	}
	return cp
}
