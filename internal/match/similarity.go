package match

import (
	"strings"

	"github.com/fast-shipment/matching-api/internal/domain"
)

// CitySimilarity scores how alike two city names are, 0..100. Exact match
// after normalization is 100, substring containment either way is 80,
// otherwise it degrades by Levenshtein distance over the longer length.
// The result is symmetric in its arguments.
func CitySimilarity(a, b string) int {
	ca := domain.NormalizeCity(a)
	cb := domain.NormalizeCity(b)
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return 100
	}
	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		return 80
	}

	ed := levenshtein(ca, cb)
	maxLen := len(ca)
	if len(cb) > maxLen {
		maxLen = len(cb)
	}
	sim := float64(maxLen-ed) / float64(maxLen) * 100
	if sim < 0 {
		sim = 0
	}
	return int(sim + 0.5)
}

// levenshtein is the classic two-row edit distance over bytes. City names are
// short, so the quadratic cost is irrelevant.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
