package domain

import "time"

type OfferStatus string

const (
	OfferStatusAvailable  OfferStatus = "available"
	OfferStatusBooked     OfferStatus = "booked"
	OfferStatusInProgress OfferStatus = "in_progress"
	OfferStatusCompleted  OfferStatus = "completed"
	OfferStatusCancelled  OfferStatus = "cancelled"
)

type CarrierType string

const (
	CarrierIndividual CarrierType = "individual"
	CarrierCarOwner   CarrierType = "car_owner"
	CarrierTruckOwner CarrierType = "truck_owner"
	CarrierFleetOwner CarrierType = "fleet_owner"
)

// Route is an origin/destination pair. Cities are stored as entered; compare
// them through NormalizeCity.
type Route struct {
	FromCountry string
	FromCity    string
	ToCountry   string
	ToCity      string
}

// TransportOffer is a carrier's declared travel capacity between two
// locations on a date.
type TransportOffer struct {
	ID     OfferID
	UserID UserID

	Route    Route
	TripDate time.Time // date-only semantics at the edges

	// AvailableWeight is the spare capacity in kg, never negative.
	AvailableWeight float64
	PricePerKg      *float64

	CarrierType CarrierType
	Status      OfferStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminalOfferStatus reports whether s admits no further transitions.
func TerminalOfferStatus(s OfferStatus) bool {
	return s == OfferStatusCompleted || s == OfferStatusCancelled
}

func ValidCarrierType(t CarrierType) bool {
	switch t {
	case CarrierIndividual, CarrierCarOwner, CarrierTruckOwner, CarrierFleetOwner:
		return true
	}
	return false
}

func ValidOfferStatus(s OfferStatus) bool {
	switch s {
	case OfferStatusAvailable, OfferStatusBooked, OfferStatusInProgress,
		OfferStatusCompleted, OfferStatusCancelled:
		return true
	}
	return false
}
