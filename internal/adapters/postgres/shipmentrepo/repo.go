package shipmentrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fast-shipment/matching-api/internal/adapters/postgres"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

// Repo is a Postgres implementation of shipmentrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const shipmentColumns = `
	id, user_id,
	from_country, from_city, to_country, to_city,
	needed_date, weight, max_price,
	shipper_type, status, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, s domain.ShipmentRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shipment_requests (
			id, user_id,
			from_country, from_city, to_country, to_city,
			needed_date, weight, max_price,
			shipper_type, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		string(s.ID), string(s.UserID),
		s.Route.FromCountry, s.Route.FromCity, s.Route.ToCountry, s.Route.ToCity,
		s.NeededDate.UTC(), s.Weight, s.MaxPrice,
		string(s.ShipperType), string(s.Status), s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return shipmentrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, s domain.ShipmentRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shipment_requests
		SET from_country = $2, from_city = $3, to_country = $4, to_city = $5,
		    needed_date = $6, weight = $7, max_price = $8,
		    shipper_type = $9, status = $10, updated_at = $11
		WHERE id = $1
	`,
		string(s.ID),
		s.Route.FromCountry, s.Route.FromCity, s.Route.ToCountry, s.Route.ToCity,
		s.NeededDate.UTC(), s.Weight, s.MaxPrice,
		string(s.ShipperType), string(s.Status), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shipmentrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ShipmentID) (domain.ShipmentRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipment_requests WHERE id = $1`, string(id))
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ShipmentRequest{}, shipmentrepo.ErrNotFound
		}
		return domain.ShipmentRequest{}, err
	}
	return s, nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.ShipmentRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipment_requests
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id ASC`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShipments(rows)
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.ShipmentRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipment_requests
		 WHERE status = $1
		 ORDER BY created_at DESC, id ASC`,
		string(domain.ShipmentStatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShipments(rows)
}

func (r *Repo) ListCandidates(ctx context.Context, f shipmentrepo.CandidateFilter) ([]domain.ShipmentRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipment_requests
		 WHERE status = $1
		   AND lower(from_country) = lower($2)
		   AND lower(to_country) = lower($3)
		   AND ($4::timestamptz IS NULL OR needed_date >= $4)
		 ORDER BY created_at DESC, id ASC`,
		string(domain.ShipmentStatusPending),
		f.FromCountry, f.ToCountry, nullableTime(f.NeededDateOnOrAfter),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShipments(rows)
}

func scanShipment(row pgx.Row) (domain.ShipmentRequest, error) {
	var (
		s        domain.ShipmentRequest
		id, user string
		shipper  string
		status   string
		maxPrice *float64
	)
	err := row.Scan(
		&id, &user,
		&s.Route.FromCountry, &s.Route.FromCity, &s.Route.ToCountry, &s.Route.ToCity,
		&s.NeededDate, &s.Weight, &maxPrice,
		&shipper, &status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.ShipmentRequest{}, err
	}
	s.ID = domain.ShipmentID(id)
	s.UserID = domain.UserID(user)
	s.MaxPrice = maxPrice
	s.ShipperType = domain.ShipperType(shipper)
	s.Status = domain.ShipmentStatus(status)
	return s, nil
}

func collectShipments(rows pgx.Rows) ([]domain.ShipmentRequest, error) {
	out := make([]domain.ShipmentRequest, 0)
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
