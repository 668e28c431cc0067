package matchrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/matchrepo"
)

type pairKey struct {
	offer    domain.OfferID
	shipment domain.ShipmentID
}

// Repo is an in-memory implementation of matchrepo.Repository. The pair index
// mirrors the unique constraint the Postgres backend enforces.
type Repo struct {
	mu     sync.RWMutex
	byID   map[domain.MatchID]domain.Match
	byPair map[pairKey]domain.MatchID
}

func NewRepo() *Repo {
	return &Repo{
		byID:   make(map[domain.MatchID]domain.Match),
		byPair: make(map[pairKey]domain.MatchID),
	}
}

func (r *Repo) Insert(ctx context.Context, m domain.Match) error {
	_ = ctx
	if m.ID == "" {
		return matchrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{m.OfferID, m.ShipmentID}
	if _, ok := r.byPair[key]; ok {
		return matchrepo.ErrAlreadyExists
	}
	if _, ok := r.byID[m.ID]; ok {
		return matchrepo.ErrAlreadyExists
	}
	r.byID[m.ID] = m
	r.byPair[key] = m.ID
	return nil
}

func (r *Repo) Save(ctx context.Context, m domain.Match) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; !ok {
		return matchrepo.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MatchID) (domain.Match, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return domain.Match{}, matchrepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) GetByPair(ctx context.Context, offer domain.OfferID, shipment domain.ShipmentID) (domain.Match, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey{offer, shipment}]
	if !ok {
		return domain.Match{}, matchrepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) ListByOffer(ctx context.Context, offer domain.OfferID) ([]domain.Match, error) {
	_ = ctx
	return r.list(func(m domain.Match) bool { return m.OfferID == offer }), nil
}

func (r *Repo) ListByShipment(ctx context.Context, shipment domain.ShipmentID) ([]domain.Match, error) {
	_ = ctx
	return r.list(func(m domain.Match) bool { return m.ShipmentID == shipment }), nil
}

func (r *Repo) list(keep func(domain.Match) bool) []domain.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Match, 0)
	for _, m := range r.byID {
		if keep(m) {
			out = append(out, m)
		}
	}
	// Highest score first, then newest, then ID for determinism.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
