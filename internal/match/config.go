// Package match implements the offer/shipment compatibility scorer.
//
// Scoring is pure arithmetic over two records: a weighted sum of route, date,
// capacity and type sub-scores, each normalized to 0..100 before weighting.
// Candidate retrieval and persistence live with the callers; nothing here
// performs I/O.
package match

// OverCapacityPolicy decides what happens to a candidate whose weight exceeds
// the offer's available capacity.
type OverCapacityPolicy string

const (
	// OverCapacityZero keeps the candidate and zeroes its capacity sub-score.
	// The composite can still clear the threshold when every other dimension
	// is strong, which the UI surfaces as an infeasible-but-close pairing.
	OverCapacityZero OverCapacityPolicy = "zero"

	// OverCapacityExclude drops the candidate before scoring.
	OverCapacityExclude OverCapacityPolicy = "exclude"
)

// Weights splits the composite score across the four sub-scores. They should
// sum to 1; Normalize rescales them when they don't.
type Weights struct {
	Route    float64
	Date     float64
	Capacity float64
	Type     float64
}

// Normalize returns w rescaled to sum to 1. Zero weights fall back to the
// defaults.
func (w Weights) Normalize() Weights {
	sum := w.Route + w.Date + w.Capacity + w.Type
	if sum <= 0 {
		return DefaultConfig().Weights
	}
	return Weights{
		Route:    w.Route / sum,
		Date:     w.Date / sum,
		Capacity: w.Capacity / sum,
		Type:     w.Type / sum,
	}
}

// Config fixes the policy choices that historically diverged between copies of
// this algorithm: the weight split, the suggestion threshold and the
// over-capacity treatment are all explicit here.
type Config struct {
	Weights Weights

	// MinScore is the lowest composite score that still yields a suggestion.
	MinScore int

	// TopN truncates the suggestion list after sorting. Zero means no limit.
	TopN int

	OverCapacity OverCapacityPolicy
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Route:    0.4,
			Date:     0.3,
			Capacity: 0.2,
			Type:     0.1,
		},
		MinScore:     30,
		TopN:         10,
		OverCapacity: OverCapacityZero,
	}
}
