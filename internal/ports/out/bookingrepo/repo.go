package bookingrepo

import (
	"context"
	"time"

	"github.com/groupventure/booking-api/internal/domain"
)

// BookingRequest is the persistence shape used by the booking request
// repository. It is not an HTTP DTO.
type BookingRequest struct {
	ID domain.BookingRequestID

	// Logical key: at most one request exists per (organizer, inquirer, trip).
	Organizer domain.UserID
	Inquirer  domain.UserID
	Trip      domain.TripID

	Status domain.BookingStatus

	// Payment is set if and only if Status is accepted_and_authorized or
	// accepted_and_captured.
	Payment *domain.PaymentID

	// Version is the optimistic-concurrency token. Save only succeeds when
	// the stored version matches, then increments it.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted booking requests.
type Repository interface {
	// Create inserts a new request. ErrAlreadyExists is returned both for a
	// duplicate ID and for a duplicate (organizer, inquirer, trip) triple.
	Create(ctx context.Context, b BookingRequest) error

	// Save writes b when the stored Version equals b.Version, and bumps the
	// version. A mismatch fails with ErrVersionConflict and writes nothing.
	Save(ctx context.Context, b BookingRequest) (BookingRequest, error)

	GetByID(ctx context.Context, id domain.BookingRequestID) (BookingRequest, error)

	// GetByParties looks up the request for the logical key.
	GetByParties(ctx context.Context, organizer, inquirer domain.UserID, trip domain.TripID) (BookingRequest, error)

	// FindByInquirerAndTrip looks up the request a given inquirer holds for a
	// trip, regardless of organizer.
	FindByInquirerAndTrip(ctx context.Context, inquirer domain.UserID, trip domain.TripID) (BookingRequest, error)

	// ListByTrip returns all requests for a trip ordered by creation time.
	ListByTrip(ctx context.Context, trip domain.TripID) ([]BookingRequest, error)
}
