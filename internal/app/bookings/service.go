package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	"github.com/groupventure/booking-api/internal/ports/out/clock"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// Service owns the booking request state machine for caller-driven
// transitions. The payment orchestrators drive the accepted_and_authorized and
// accepted_and_captured transitions themselves.
type Service struct {
	bookings bookingrepo.Repository
	trips    triprepo.Repository
	clk      clock.Clock

	newBookingID func() domain.BookingRequestID
}

func NewService(bookingsRepo bookingrepo.Repository, tripsRepo triprepo.Repository, clk clock.Clock) *Service {
	return &Service{
		bookings: bookingsRepo,
		trips:    tripsRepo,
		clk:      clk,
		newBookingID: func() domain.BookingRequestID {
			return domain.BookingRequestID(uuid.NewString())
		},
	}
}

// SetNewBookingIDForTest overrides booking ID generation for deterministic
// tests. It should not be used in production code.
func (s *Service) SetNewBookingIDForTest(fn func() domain.BookingRequestID) {
	if fn != nil {
		s.newBookingID = fn
	}
}

type CreateInput struct {
	Organizer domain.UserID
	Inquirer  domain.UserID
	Trip      domain.TripID
}

// Create opens a pending booking request. It is idempotent by
// (organizer, inquirer, trip): if a request already exists for the triple it
// is returned unchanged.
func (s *Service) Create(ctx context.Context, caller domain.UserID, in CreateInput) (bookingrepo.BookingRequest, error) {
	if in.Organizer == "" || in.Inquirer == "" || in.Trip == "" {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "organizer, inquirer and trip are required"}
	}
	if caller != in.Inquirer {
		return bookingrepo.BookingRequest{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "only the inquirer may open a booking request"}
	}

	t, err := s.trips.GetByID(ctx, in.Trip)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return bookingrepo.BookingRequest{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return bookingrepo.BookingRequest{}, err
	}
	if t.Organizer != in.Organizer {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "organizer does not own this trip", Details: map[string]any{"organizer": "mismatch"}}
	}
	if t.Organizer == in.Inquirer {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "organizer cannot book their own trip"}
	}

	if existing, err := s.bookings.GetByParties(ctx, in.Organizer, in.Inquirer, in.Trip); err == nil {
		return existing, nil
	} else if !errors.Is(err, bookingrepo.ErrNotFound) {
		return bookingrepo.BookingRequest{}, err
	}

	now := s.clk.Now()
	b := bookingrepo.BookingRequest{
		ID:        s.newBookingID(),
		Organizer: in.Organizer,
		Inquirer:  in.Inquirer,
		Trip:      in.Trip,
		Status:    domain.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, bookingrepo.ErrAlreadyExists) {
			// Lost a create race for the same triple; the other request wins.
			return s.bookings.GetByParties(ctx, in.Organizer, in.Inquirer, in.Trip)
		}
		return bookingrepo.BookingRequest{}, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id domain.BookingRequestID) (bookingrepo.BookingRequest, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return bookingrepo.BookingRequest{}, &Error{Status: 404, Code: "BOOKING_REQUEST_NOT_FOUND", Message: "booking request not found"}
		}
		return bookingrepo.BookingRequest{}, err
	}
	return b, nil
}

func (s *Service) GetByParties(ctx context.Context, organizer, inquirer domain.UserID, trip domain.TripID) (bookingrepo.BookingRequest, error) {
	if organizer == "" || inquirer == "" || trip == "" {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "organizer, inquirer and trip are required"}
	}
	b, err := s.bookings.GetByParties(ctx, organizer, inquirer, trip)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return bookingrepo.BookingRequest{}, &Error{Status: 404, Code: "BOOKING_REQUEST_NOT_FOUND", Message: "booking request not found"}
		}
		return bookingrepo.BookingRequest{}, err
	}
	return b, nil
}

func (s *Service) ListByTrip(ctx context.Context, trip domain.TripID) ([]bookingrepo.BookingRequest, error) {
	if trip == "" {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "trip is required"}
	}
	return s.bookings.ListByTrip(ctx, trip)
}

// Transition applies a caller-requested status change.
//
// Only pending/accepted/declined/canceled flows go through here: the two
// payment-coupled statuses are owned by the orchestrators and are rejected as
// targets regardless of the current state.
func (s *Service) Transition(ctx context.Context, caller domain.UserID, id domain.BookingRequestID, target domain.BookingStatus) (bookingrepo.BookingRequest, error) {
	if !domain.ValidBookingStatus(target) {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "unknown status", Details: map[string]any{"status": string(target)}}
	}
	if target.Authorized() {
		return bookingrepo.BookingRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "status is set by the payment flow, not directly"}
	}

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return bookingrepo.BookingRequest{}, &Error{Status: 404, Code: "BOOKING_REQUEST_NOT_FOUND", Message: "booking request not found"}
		}
		return bookingrepo.BookingRequest{}, err
	}

	switch target {
	case domain.BookingStatusAccepted, domain.BookingStatusDeclined:
		if caller != b.Organizer {
			return bookingrepo.BookingRequest{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "only the organizer may accept or decline"}
		}
	case domain.BookingStatusCanceled:
		if caller != b.Organizer && caller != b.Inquirer {
			return bookingrepo.BookingRequest{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "only a party to the booking may cancel"}
		}
	}

	if b.Status == target {
		// Replayed request; nothing to do.
		return b, nil
	}
	if !domain.CanTransition(b.Status, target) {
		return bookingrepo.BookingRequest{}, &Error{
			Status:  409,
			Code:    "ILLEGAL_TRANSITION",
			Message: "status transition not allowed",
			Details: map[string]any{"from": string(b.Status), "to": string(target)},
		}
	}

	b.Status = target
	b.UpdatedAt = s.clk.Now()
	saved, err := s.bookings.Save(ctx, b)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrVersionConflict) {
			return bookingrepo.BookingRequest{}, &Error{Status: 409, Code: "CONFLICT", Message: "booking request was modified concurrently, retry"}
		}
		return bookingrepo.BookingRequest{}, err
	}
	return saved, nil
}
