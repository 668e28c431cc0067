package matchrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fast-shipment/matching-api/internal/adapters/postgres"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/matchrepo"
)

// Repo is a Postgres implementation of matchrepo.Repository. Pair uniqueness
// rides on the matches_offer_shipment_unique constraint.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const matchColumns = `id, offer_id, shipment_id, score, status, created_at, updated_at`

func (r *Repo) Insert(ctx context.Context, m domain.Match) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO matches (id, offer_id, shipment_id, score, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		string(m.ID), string(m.OfferID), string(m.ShipmentID),
		m.Score, string(m.Status), m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return matchrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, m domain.Match) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE matches SET score = $2, status = $3, updated_at = $4 WHERE id = $1
	`, string(m.ID), m.Score, string(m.Status), m.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return matchrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MatchID) (domain.Match, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, string(id))
	return scanMatch(row)
}

func (r *Repo) GetByPair(ctx context.Context, offer domain.OfferID, shipment domain.ShipmentID) (domain.Match, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE offer_id = $1 AND shipment_id = $2`,
		string(offer), string(shipment))
	return scanMatch(row)
}

func (r *Repo) ListByOffer(ctx context.Context, offer domain.OfferID) ([]domain.Match, error) {
	return r.list(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE offer_id = $1
		 ORDER BY score DESC, created_at DESC, id ASC`, string(offer))
}

func (r *Repo) ListByShipment(ctx context.Context, shipment domain.ShipmentID) ([]domain.Match, error) {
	return r.list(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE shipment_id = $1
		 ORDER BY score DESC, created_at DESC, id ASC`, string(shipment))
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]domain.Match, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (domain.Match, error) {
	var (
		m                       domain.Match
		id, offer, shipment, st string
	)
	err := row.Scan(&id, &offer, &shipment, &m.Score, &st, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, matchrepo.ErrNotFound
		}
		return domain.Match{}, err
	}
	m.ID = domain.MatchID(id)
	m.OfferID = domain.OfferID(offer)
	m.ShipmentID = domain.ShipmentID(shipment)
	m.Status = domain.MatchStatus(st)
	return m, nil
}
