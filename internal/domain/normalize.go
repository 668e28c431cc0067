package domain

import "strings"

// NormalizeCity lowercases, trims and collapses internal whitespace runs.
// All city comparisons in the matching path go through this.
func NormalizeCity(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
