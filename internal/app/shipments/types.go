package shipments

import (
	"time"

	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/domain"
)

type CreateShipmentInput struct {
	FromCountry string
	FromCity    string
	ToCountry   string
	ToCity      string

	NeededDate  time.Time
	Weight      float64
	MaxPrice    *float64
	ShipperType domain.ShipperType
}

type UpdateShipmentInput struct {
	NeededDate field.Optional[time.Time]
	Weight     field.Optional[float64]
	MaxPrice   field.Optional[float64] // null clears the budget cap
	FromCity   field.Optional[string]
	ToCity     field.Optional[string]
}
