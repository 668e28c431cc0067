package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_passes_total",
		Help: "Scoring passes run, by anchor kind.",
	}, []string{"anchor"})

	candidatesScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_candidates_scored_total",
		Help: "Candidates scored across all passes.",
	})

	suggestionsPersistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_suggestions_persisted_total",
		Help: "Match rows created by persisting passes.",
	})

	fetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_candidate_fetch_failures_total",
		Help: "Candidate fetches that failed or timed out and degraded to an empty list.",
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_suggestion_cache_hits_total",
		Help: "Suggestion lists served from the cache.",
	})
)
