package offers

import (
	"time"

	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/domain"
)

type CreateOfferInput struct {
	FromCountry string
	FromCity    string
	ToCountry   string
	ToCity      string

	TripDate        time.Time
	AvailableWeight float64
	PricePerKg      *float64
	CarrierType     domain.CarrierType
}

type UpdateOfferInput struct {
	TripDate        field.Optional[time.Time]
	AvailableWeight field.Optional[float64]
	PricePerKg      field.Optional[float64] // null clears the price
	FromCity        field.Optional[string]
	ToCity          field.Optional[string]
}
