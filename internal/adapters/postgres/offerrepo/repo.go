package offerrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fast-shipment/matching-api/internal/adapters/postgres"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
)

// Repo is a Postgres implementation of offerrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const offerColumns = `
	id, user_id,
	from_country, from_city, to_country, to_city,
	trip_date, available_weight, price_per_kg,
	carrier_type, status, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, o domain.TransportOffer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transport_offers (
			id, user_id,
			from_country, from_city, to_country, to_city,
			trip_date, available_weight, price_per_kg,
			carrier_type, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		string(o.ID), string(o.UserID),
		o.Route.FromCountry, o.Route.FromCity, o.Route.ToCountry, o.Route.ToCity,
		o.TripDate.UTC(), o.AvailableWeight, o.PricePerKg,
		string(o.CarrierType), string(o.Status), o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return offerrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, o domain.TransportOffer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transport_offers
		SET from_country = $2, from_city = $3, to_country = $4, to_city = $5,
		    trip_date = $6, available_weight = $7, price_per_kg = $8,
		    carrier_type = $9, status = $10, updated_at = $11
		WHERE id = $1
	`,
		string(o.ID),
		o.Route.FromCountry, o.Route.FromCity, o.Route.ToCountry, o.Route.ToCity,
		o.TripDate.UTC(), o.AvailableWeight, o.PricePerKg,
		string(o.CarrierType), string(o.Status), o.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return offerrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.OfferID) (domain.TransportOffer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM transport_offers WHERE id = $1`, string(id))
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TransportOffer{}, offerrepo.ErrNotFound
		}
		return domain.TransportOffer{}, err
	}
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.TransportOffer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM transport_offers
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id ASC`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *Repo) ListOpen(ctx context.Context) ([]domain.TransportOffer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM transport_offers
		 WHERE status = $1
		 ORDER BY created_at DESC, id ASC`,
		string(domain.OfferStatusAvailable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *Repo) ListCandidates(ctx context.Context, f offerrepo.CandidateFilter) ([]domain.TransportOffer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM transport_offers
		 WHERE status = $1
		   AND lower(from_country) = lower($2)
		   AND lower(to_country) = lower($3)
		   AND ($4::timestamptz IS NULL OR trip_date >= $4)
		 ORDER BY created_at DESC, id ASC`,
		string(domain.OfferStatusAvailable),
		f.FromCountry, f.ToCountry, nullableTime(f.TripDateOnOrAfter),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}
