package match

import (
	"fmt"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// Reasons renders an ordered list of human-readable explanations for a scored
// pair. Strongest signals come first.
func Reasons(offer domain.TransportOffer, req domain.ShipmentRequest, b Breakdown) []string {
	var out []string

	switch {
	case b.Route == 100:
		out = append(out, "exact route match")
	case b.Route == 70:
		out = append(out, "same destination city")
	case b.Route == 60:
		out = append(out, "same origin city")
	case b.Route == 50:
		out = append(out, "shipment lies along the trip route")
	}

	if !offer.TripDate.IsZero() && !req.NeededDate.IsZero() {
		switch d := DateGapDays(offer.TripDate, req.NeededDate); {
		case d == 0:
			out = append(out, "travelling on the needed date")
		case d <= 3:
			out = append(out, fmt.Sprintf("travelling within %d day(s) of the needed date", d))
		case d <= 14:
			out = append(out, fmt.Sprintf("%d days from the needed date", d))
		}
	}

	if OverCapacity(offer, req) {
		out = append(out, "requested weight exceeds spare capacity")
	} else if b.Capacity >= 90 {
		out = append(out, "excellent capacity utilization")
	} else if b.Capacity >= 70 {
		out = append(out, "good capacity fit")
	}

	if b.Type == 100 {
		out = append(out, fmt.Sprintf("%s carriers typically serve %s shippers", offer.CarrierType, req.ShipperType))
	}

	return out
}
