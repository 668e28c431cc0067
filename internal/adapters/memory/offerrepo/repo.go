package offerrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
)

// Repo is an in-memory implementation of offerrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.OfferID]domain.TransportOffer
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.OfferID]domain.TransportOffer),
	}
}

func (r *Repo) Create(ctx context.Context, o domain.TransportOffer) error {
	_ = ctx
	if o.ID == "" {
		return offerrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; ok {
		return offerrepo.ErrAlreadyExists
	}
	r.byID[o.ID] = cloneOffer(o)
	return nil
}

func (r *Repo) Save(ctx context.Context, o domain.TransportOffer) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; !ok {
		return offerrepo.ErrNotFound
	}
	r.byID[o.ID] = cloneOffer(o)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.OfferID) (domain.TransportOffer, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return domain.TransportOffer{}, offerrepo.ErrNotFound
	}
	return cloneOffer(o), nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.TransportOffer, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TransportOffer, 0)
	for _, o := range r.byID {
		if o.UserID == user {
			out = append(out, cloneOffer(o))
		}
	}
	sortOffers(out)
	return out, nil
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.TransportOffer, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TransportOffer, 0)
	for _, o := range r.byID {
		if o.Status == domain.OfferStatusAvailable {
			out = append(out, cloneOffer(o))
		}
	}
	sortOffers(out)
	return out, nil
}

func (r *Repo) ListCandidates(ctx context.Context, f offerrepo.CandidateFilter) ([]domain.TransportOffer, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TransportOffer, 0)
	for _, o := range r.byID {
		if o.Status != domain.OfferStatusAvailable {
			continue
		}
		if !countryEqual(o.Route.FromCountry, f.FromCountry) || !countryEqual(o.Route.ToCountry, f.ToCountry) {
			continue
		}
		if !f.TripDateOnOrAfter.IsZero() && o.TripDate.Before(f.TripDateOnOrAfter) {
			continue
		}
		out = append(out, cloneOffer(o))
	}
	sortOffers(out)
	return out, nil
}

func countryEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// sortOffers orders newest-created first, ID ascending on ties.
func sortOffers(os []domain.TransportOffer) {
	sort.SliceStable(os, func(i, j int) bool {
		if !os[i].CreatedAt.Equal(os[j].CreatedAt) {
			return os[i].CreatedAt.After(os[j].CreatedAt)
		}
		return os[i].ID < os[j].ID
	})
}

func cloneOffer(o domain.TransportOffer) domain.TransportOffer {
	cp := o
	if o.PricePerKg != nil {
		v := *o.PricePerKg
		cp.PricePerKg = &v
	}
	return cp
}
