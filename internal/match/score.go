package match

import (
	"math"
	"time"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// Breakdown carries the normalized sub-scores behind a composite score.
type Breakdown struct {
	Route    int
	Date     int
	Capacity int
	Type     int
}

// typeCompat maps a carrier category to the shipper categories it serves well.
// A miss is a soft penalty (50), never disqualifying.
var typeCompat = map[domain.CarrierType][]domain.ShipperType{
	domain.CarrierIndividual: {domain.ShipperIndividual, domain.ShipperSmallBusiness},
	domain.CarrierCarOwner:   {domain.ShipperIndividual, domain.ShipperSmallBusiness, domain.ShipperMediumBusiness},
	domain.CarrierTruckOwner: {domain.ShipperSmallBusiness, domain.ShipperMediumBusiness, domain.ShipperLargeBusiness},
	domain.CarrierFleetOwner: {domain.ShipperMediumBusiness, domain.ShipperLargeBusiness, domain.ShipperEnterprise},
}

// Score computes the 0..100 compatibility of an offer/shipment pair under cfg.
// It never rejects a pair; thresholding and over-capacity exclusion are the
// caller's concern (see OverCapacity).
func Score(offer domain.TransportOffer, req domain.ShipmentRequest, cfg Config) (int, Breakdown) {
	w := cfg.Weights.Normalize()
	b := Breakdown{
		Route:    RouteScore(offer.Route, req.Route),
		Date:     DateScore(offer.TripDate, req.NeededDate),
		Capacity: CapacityScore(offer.AvailableWeight, req.Weight),
		Type:     TypeScore(offer.CarrierType, req.ShipperType),
	}
	total := w.Route*float64(b.Route) +
		w.Date*float64(b.Date) +
		w.Capacity*float64(b.Capacity) +
		w.Type*float64(b.Type)
	return clampScore(int(math.Round(total))), b
}

// OverCapacity reports whether the requested weight exceeds the offer's spare
// capacity. A missing (zero) capacity is over capacity for any positive weight.
func OverCapacity(offer domain.TransportOffer, req domain.ShipmentRequest) bool {
	return req.Weight > offer.AvailableWeight
}

// RouteScore compares the two routes city-by-city:
// both ends similar -> 100, destination only -> 70, origin only -> 60,
// any cross-city similarity above 70 -> 50, otherwise 0.
func RouteScore(offer, req domain.Route) int {
	fromSim := CitySimilarity(offer.FromCity, req.FromCity)
	toSim := CitySimilarity(offer.ToCity, req.ToCity)

	switch {
	case fromSim >= 80 && toSim >= 80:
		return 100
	case toSim >= 80:
		return 70
	case fromSim >= 80:
		return 60
	}

	// Weak fallback: the shipment's endpoints sit near either end of the trip.
	offerCities := [2]string{offer.FromCity, offer.ToCity}
	reqCities := [2]string{req.FromCity, req.ToCity}
	for _, oc := range offerCities {
		for _, rc := range reqCities {
			if CitySimilarity(oc, rc) >= 70 {
				return 50
			}
		}
	}
	return 0
}

// DateScore ladders the absolute day gap between trip date and needed-by date.
// A missing date on either side scores 0; callers that want to exclude such
// candidates outright should check the dates before scoring.
func DateScore(tripDate, neededDate time.Time) int {
	if tripDate.IsZero() || neededDate.IsZero() {
		return 0
	}
	switch d := DateGapDays(tripDate, neededDate); {
	case d == 0:
		return 100
	case d <= 1:
		return 90
	case d <= 3:
		return 70
	case d <= 7:
		return 50
	case d <= 14:
		return 30
	default:
		return 0
	}
}

// DateGapDays is the absolute calendar-day difference between two instants,
// both truncated to their UTC date.
func DateGapDays(a, b time.Time) int {
	da := a.UTC().Truncate(24 * time.Hour)
	db := b.UTC().Truncate(24 * time.Hour)
	d := int(da.Sub(db) / (24 * time.Hour))
	if d < 0 {
		d = -d
	}
	return d
}

// CapacityScore rewards high utilization of the offer's spare capacity.
// An infeasible pair (weight over capacity) scores 0.
func CapacityScore(available, weight float64) int {
	if weight <= 0 || weight > available {
		return 0
	}
	switch u := weight / available * 100; {
	case u >= 80:
		return 100
	case u >= 60:
		return 90
	case u >= 40:
		return 80
	case u >= 20:
		return 70
	default:
		return 50
	}
}

// TypeScore consults the carrier/shipper compatibility matrix: 100 on a hit,
// 50 on a miss or when either category is unknown.
func TypeScore(carrier domain.CarrierType, shipper domain.ShipperType) int {
	for _, s := range typeCompat[carrier] {
		if s == shipper {
			return 100
		}
	}
	return 50
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
