package offerrepo

import (
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fast-shipment/matching-api/internal/domain"
)

func scanOffer(row pgx.Row) (domain.TransportOffer, error) {
	var (
		o          domain.TransportOffer
		id, user   string
		carrier    string
		status     string
		pricePerKg *float64
	)
	err := row.Scan(
		&id, &user,
		&o.Route.FromCountry, &o.Route.FromCity, &o.Route.ToCountry, &o.Route.ToCity,
		&o.TripDate, &o.AvailableWeight, &pricePerKg,
		&carrier, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.TransportOffer{}, err
	}
	o.ID = domain.OfferID(id)
	o.UserID = domain.UserID(user)
	o.PricePerKg = pricePerKg
	o.CarrierType = domain.CarrierType(carrier)
	o.Status = domain.OfferStatus(status)
	return o, nil
}

func collectOffers(rows pgx.Rows) ([]domain.TransportOffer, error) {
	out := make([]domain.TransportOffer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
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
