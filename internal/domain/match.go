package domain

import "time"

type MatchStatus string

const (
	MatchStatusSuggested  MatchStatus = "suggested"
	MatchStatusAccepted   MatchStatus = "accepted"
	MatchStatusRejected   MatchStatus = "rejected"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// Match is a scored pairing of exactly one offer and one shipment request.
// The store enforces uniqueness per (offer, request) pair.
type Match struct {
	ID         MatchID
	OfferID    OfferID
	ShipmentID ShipmentID

	Score int // 0..100

	Status MatchStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

func TerminalMatchStatus(s MatchStatus) bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled || s == MatchStatusRejected
}

// CanTransitionMatch reports whether a match may move from one status to
// another. Acceptance and rejection are only open while suggested; cancellation
// is open from any non-terminal state.
func CanTransitionMatch(from, to MatchStatus) bool {
	if from == to {
		return false
	}
	if to == MatchStatusCancelled {
		return !TerminalMatchStatus(from)
	}
	switch from {
	case MatchStatusSuggested:
		return to == MatchStatusAccepted || to == MatchStatusRejected
	case MatchStatusAccepted:
		return to == MatchStatusInProgress
	case MatchStatusInProgress:
		return to == MatchStatusCompleted
	}
	return false
}

func ValidMatchStatus(s MatchStatus) bool {
	switch s {
	case MatchStatusSuggested, MatchStatusAccepted, MatchStatusRejected,
		MatchStatusInProgress, MatchStatusCompleted, MatchStatusCancelled:
		return true
	}
	return false
}
