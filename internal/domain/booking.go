package domain

// BookingStatus is the lifecycle status of a booking request.
//
// The status strings are part of the persisted and wire format, so they stay
// lowercase snake_case.
type BookingStatus string

const (
	BookingStatusPending               BookingStatus = "pending"
	BookingStatusAccepted              BookingStatus = "accepted"
	BookingStatusDeclined              BookingStatus = "declined"
	BookingStatusCanceled              BookingStatus = "canceled"
	BookingStatusAcceptedAndAuthorized BookingStatus = "accepted_and_authorized"
	BookingStatusAcceptedAndCaptured   BookingStatus = "accepted_and_captured"
)

// bookingTransitions is the full transition table. Absent keys are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {
		BookingStatusAccepted,
		BookingStatusDeclined,
		BookingStatusCanceled,
	},
	BookingStatusAccepted: {
		BookingStatusCanceled,
		BookingStatusAcceptedAndAuthorized,
	},
	BookingStatusAcceptedAndAuthorized: {
		BookingStatusAcceptedAndCaptured,
	},
}

// ValidBookingStatus reports whether s is a known status value.
func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusDeclined,
		BookingStatusCanceled, BookingStatusAcceptedAndAuthorized,
		BookingStatusAcceptedAndCaptured:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Authorized reports whether a payment hold has been confirmed for this
// booking, i.e. the status is accepted_and_authorized or later.
func (s BookingStatus) Authorized() bool {
	return s == BookingStatusAcceptedAndAuthorized || s == BookingStatusAcceptedAndCaptured
}

// CanTransition reports whether `to` is directly reachable from `from`.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
