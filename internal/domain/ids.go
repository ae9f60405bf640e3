package domain

// UserID is the authenticated caller identity supplied by the session layer.
// We model it as an opaque identifier: its format is controlled by the
// credential service.
type UserID string

// TripID is an internal identifier for a trip record.
type TripID string

// BookingRequestID is an internal identifier for a booking request record.
type BookingRequestID string

// PaymentID is an internal identifier for a payment record.
type PaymentID string
