package domain

import "strings"

type TripStatus string

const (
	TripStatusNotStarted TripStatus = "NOT_STARTED"
	TripStatusStarted    TripStatus = "STARTED"
)

// NormalizeTripTitle trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for trip title normalization.
func NormalizeTripTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
