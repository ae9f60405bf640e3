package events

import (
	"context"
	"time"

	"github.com/groupventure/booking-api/internal/domain"
)

// Type names a booking lifecycle event.
type Type string

const (
	TypeBookingAuthorized Type = "BOOKING_AUTHORIZED"
	TypeBookingCaptured   Type = "BOOKING_CAPTURED"
	TypeTripStarted       Type = "TRIP_STARTED"
)

// BookingEvent is the payload published for booking lifecycle changes.
type BookingEvent struct {
	Type           Type                    `json:"type"`
	TripID         domain.TripID           `json:"trip_id"`
	BookingRequest domain.BookingRequestID `json:"booking_request_id,omitempty"`
	Inquirer       domain.UserID           `json:"inquirer_id,omitempty"`
	ProcessorRef   string                  `json:"processor_ref,omitempty"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

// Publisher pushes booking lifecycle events to interested consumers
// (notifications, chat, analytics). Publishing is best-effort from the
// orchestrators' perspective: a failed publish must not fail the booking.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}
