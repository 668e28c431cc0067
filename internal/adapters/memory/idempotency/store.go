package idempotency

import (
	"context"
	"sync"

	"github.com/fast-shipment/matching-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Records never expire; acceptable for the
// default (single-process, dev/test) backend.
type Store struct {
	mu   sync.RWMutex
	recs map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{recs: make(map[idempotency.Fingerprint]idempotency.Record)}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	cp := rec
	cp.Body = append([]byte(nil), rec.Body...)
	return cp, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	cp.Body = append([]byte(nil), rec.Body...)
	s.recs[fp] = cp
	return nil
}
