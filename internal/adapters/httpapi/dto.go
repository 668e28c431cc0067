package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/app/matching"
	"github.com/fast-shipment/matching-api/internal/domain"
)

const dateLayout = "2006-01-02"

// --- requests ---

type createOfferRequest struct {
	FromCountry     string   `json:"from_country" validate:"required"`
	FromCity        string   `json:"from_city" validate:"required"`
	ToCountry       string   `json:"to_country" validate:"required"`
	ToCity          string   `json:"to_city" validate:"required"`
	TripDate        string   `json:"trip_date" validate:"required,datetime=2006-01-02"`
	AvailableWeight float64  `json:"available_weight" validate:"gte=0"`
	PricePerKg      *float64 `json:"price_per_kg,omitempty" validate:"omitempty,gte=0"`
	CarrierType     string   `json:"carrier_type" validate:"required,oneof=individual car_owner truck_owner fleet_owner"`
}

type updateOfferRequest struct {
	TripDate        nullable.Nullable[string]  `json:"trip_date,omitempty"`
	AvailableWeight nullable.Nullable[float64] `json:"available_weight,omitempty"`
	PricePerKg      nullable.Nullable[float64] `json:"price_per_kg,omitempty"`
	FromCity        nullable.Nullable[string]  `json:"from_city,omitempty"`
	ToCity          nullable.Nullable[string]  `json:"to_city,omitempty"`
}

type createShipmentRequest struct {
	FromCountry string   `json:"from_country" validate:"required"`
	FromCity    string   `json:"from_city" validate:"required"`
	ToCountry   string   `json:"to_country" validate:"required"`
	ToCity      string   `json:"to_city" validate:"required"`
	NeededDate  string   `json:"needed_date" validate:"required,datetime=2006-01-02"`
	Weight      float64  `json:"weight" validate:"gt=0"`
	MaxPrice    *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	ShipperType string   `json:"shipper_type" validate:"required,oneof=individual small_business medium_business large_business enterprise"`
}

type updateShipmentRequest struct {
	NeededDate nullable.Nullable[string]  `json:"needed_date,omitempty"`
	Weight     nullable.Nullable[float64] `json:"weight,omitempty"`
	MaxPrice   nullable.Nullable[float64] `json:"max_price,omitempty"`
	FromCity   nullable.Nullable[string]  `json:"from_city,omitempty"`
	ToCity     nullable.Nullable[string]  `json:"to_city,omitempty"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// --- responses ---

type offerResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	FromCountry     string   `json:"from_country"`
	FromCity        string   `json:"from_city"`
	ToCountry       string   `json:"to_country"`
	ToCity          string   `json:"to_city"`
	TripDate        string   `json:"trip_date"`
	AvailableWeight float64  `json:"available_weight"`
	PricePerKg      *float64 `json:"price_per_kg,omitempty"`
	CarrierType     string   `json:"carrier_type"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type shipmentResponse struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	FromCountry string   `json:"from_country"`
	FromCity    string   `json:"from_city"`
	ToCountry   string   `json:"to_country"`
	ToCity      string   `json:"to_city"`
	NeededDate  string   `json:"needed_date"`
	Weight      float64  `json:"weight"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	ShipperType string   `json:"shipper_type"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type breakdownResponse struct {
	Route    int `json:"route"`
	Date     int `json:"date"`
	Capacity int `json:"capacity"`
	Type     int `json:"type"`
}

type suggestionResponse struct {
	Offer     offerResponse     `json:"offer"`
	Shipment  shipmentResponse  `json:"shipment"`
	Score     int               `json:"score"`
	Breakdown breakdownResponse `json:"breakdown"`
	Reasons   []string          `json:"reasons,omitempty"`
	MatchID   string            `json:"match_id,omitempty"`
}

type passResultResponse struct {
	Suggestions []suggestionResponse `json:"suggestions"`
	Created     int                  `json:"created"`
	Existing    int                  `json:"existing"`
}

type matchResponse struct {
	ID         string `json:"id"`
	OfferID    string `json:"offer_id"`
	ShipmentID string `json:"shipment_id"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toOfferResponse(o domain.TransportOffer) offerResponse {
	return offerResponse{
		ID:              string(o.ID),
		UserID:          string(o.UserID),
		FromCountry:     o.Route.FromCountry,
		FromCity:        o.Route.FromCity,
		ToCountry:       o.Route.ToCountry,
		ToCity:          o.Route.ToCity,
		TripDate:        o.TripDate.UTC().Format(dateLayout),
		AvailableWeight: o.AvailableWeight,
		PricePerKg:      o.PricePerKg,
		CarrierType:     string(o.CarrierType),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toShipmentResponse(s domain.ShipmentRequest) shipmentResponse {
	return shipmentResponse{
		ID:          string(s.ID),
		UserID:      string(s.UserID),
		FromCountry: s.Route.FromCountry,
		FromCity:    s.Route.FromCity,
		ToCountry:   s.Route.ToCountry,
		ToCity:      s.Route.ToCity,
		NeededDate:  s.NeededDate.UTC().Format(dateLayout),
		Weight:      s.Weight,
		MaxPrice:    s.MaxPrice,
		ShipperType: string(s.ShipperType),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSuggestionResponse(sg matching.Suggestion) suggestionResponse {
	return suggestionResponse{
		Offer:    toOfferResponse(sg.Offer),
		Shipment: toShipmentResponse(sg.Shipment),
		Score:    sg.Score,
		Breakdown: breakdownResponse{
			Route:    sg.Breakdown.Route,
			Date:     sg.Breakdown.Date,
			Capacity: sg.Breakdown.Capacity,
			Type:     sg.Breakdown.Type,
		},
		Reasons: sg.Reasons,
		MatchID: string(sg.MatchID),
	}
}

func toSuggestionResponses(ss []matching.Suggestion) []suggestionResponse {
	out := make([]suggestionResponse, 0, len(ss))
	for _, sg := range ss {
		out = append(out, toSuggestionResponse(sg))
	}
	return out
}

func toMatchResponse(m domain.Match) matchResponse {
	return matchResponse{
		ID:         string(m.ID),
		OfferID:    string(m.OfferID),
		ShipmentID: string(m.ShipmentID),
		Score:      m.Score,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMatchResponses(ms []domain.Match) []matchResponse {
	out := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMatchResponse(m))
	}
	return out
}

// --- tri-state conversions ---

// optionalFrom maps a nullable JSON field onto the app layer's tri-state.
func optionalFrom[T any](n nullable.Nullable[T]) field.Optional[T] {
	if !n.IsSpecified() {
		return field.Unspecified[T]()
	}
	if n.IsNull() {
		return field.Null[T]()
	}
	v, _ := n.Get()
	return field.Some(v)
}

// optionalDate parses a nullable date string; a parse failure reports as
// ok=false so the handler can reject the payload.
func optionalDate(n nullable.Nullable[string]) (field.Optional[time.Time], bool) {
	if !n.IsSpecified() {
		return field.Unspecified[time.Time](), true
	}
	if n.IsNull() {
		return field.Null[time.Time](), true
	}
	raw, _ := n.Get()
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return field.Optional[time.Time]{}, false
	}
	return field.Some(t), true
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}
