package domain

import "time"

type ShipmentStatus string

const (
	ShipmentStatusPending    ShipmentStatus = "pending"
	ShipmentStatusMatched    ShipmentStatus = "matched"
	ShipmentStatusInProgress ShipmentStatus = "in_progress"
	ShipmentStatusDelivered  ShipmentStatus = "delivered"
	ShipmentStatusCancelled  ShipmentStatus = "cancelled"
)

type ShipperType string

const (
	ShipperIndividual     ShipperType = "individual"
	ShipperSmallBusiness  ShipperType = "small_business"
	ShipperMediumBusiness ShipperType = "medium_business"
	ShipperLargeBusiness  ShipperType = "large_business"
	ShipperEnterprise     ShipperType = "enterprise"
)

// ShipmentRequest is a shipper's declared need to move a weight of goods
// between two locations by a date.
type ShipmentRequest struct {
	ID     ShipmentID
	UserID UserID

	Route      Route
	NeededDate time.Time // date-only semantics at the edges

	// Weight in kg, strictly positive at the input boundary.
	Weight   float64
	MaxPrice *float64

	ShipperType ShipperType
	Status      ShipmentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

func TerminalShipmentStatus(s ShipmentStatus) bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled
}

func ValidShipperType(t ShipperType) bool {
	switch t {
	case ShipperIndividual, ShipperSmallBusiness, ShipperMediumBusiness,
		ShipperLargeBusiness, ShipperEnterprise:
		return true
	}
	return false
}

func ValidShipmentStatus(s ShipmentStatus) bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusMatched, ShipmentStatusInProgress,
		ShipmentStatusDelivered, ShipmentStatusCancelled:
		return true
	}
	return false
}
