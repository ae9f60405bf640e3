package trips

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/clock"
	"github.com/groupventure/booking-api/internal/ports/out/events"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

type Service struct {
	trips  triprepo.Repository
	events events.Publisher
	clk    clock.Clock

	newTripID func() domain.TripID
}

func NewService(tripsRepo triprepo.Repository, pub events.Publisher, clk clock.Clock) *Service {
	return &Service{
		trips:  tripsRepo,
		events: pub,
		clk:    clk,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

func (s *Service) CreateTrip(ctx context.Context, organizer domain.UserID, in CreateTripInput) (triprepo.Trip, error) {
	if organizer == "" {
		return triprepo.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid organizer", Details: map[string]any{"organizer": "must be non-empty"}}
	}

	title := domain.NormalizeTripTitle(in.Title)
	if title == "" {
		return triprepo.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid title", Details: map[string]any{"title": "must be non-empty"}}
	}
	if in.TotalSpots < 1 {
		return triprepo.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid capacity", Details: map[string]any{"totalSpots": "must be at least 1"}}
	}
	// RequiredSpots is the divisor of the worst-case per-person price, so it
	// must be at least 1 and never exceed capacity (keeps minPrice <= maxPrice).
	if in.RequiredSpots < 1 || in.RequiredSpots > in.TotalSpots {
		return triprepo.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid required spots", Details: map[string]any{"requiredSpots": "must be between 1 and totalSpots"}}
	}
	if !in.Price.IsPositive() {
		return triprepo.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid price", Details: map[string]any{"price": "must be positive"}}
	}

	now := s.clk.Now()
	t := triprepo.Trip{
		ID:             s.newTripID(),
		Title:          title,
		Organizer:      organizer,
		TotalSpots:     in.TotalSpots,
		AvailableSpots: in.TotalSpots,
		RequiredSpots:  in.RequiredSpots,
		Price:          in.Price,
		Status:         domain.TripStatusNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return triprepo.Trip{}, &Error{Status: 409, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

func (s *Service) GetTrip(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

// StartTrip freezes the trip. Once started, capacity and the participant set
// are immutable; the capture orchestrator is expected to have run first.
func (s *Service) StartTrip(ctx context.Context, caller domain.UserID, id domain.TripID) (triprepo.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return triprepo.Trip{}, err
	}
	if t.Organizer != caller {
		return triprepo.Trip{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "only the organizer may start the trip"}
	}
	if t.Status == domain.TripStatusStarted {
		return triprepo.Trip{}, &Error{Status: 409, Code: "TRIP_ALREADY_STARTED", Message: "trip already started"}
	}
	if !t.RequiredSpotsMet() {
		return triprepo.Trip{}, &Error{Status: 409, Code: "REQUIRED_SPOTS_NOT_MET", Message: "not enough spots booked to start the trip"}
	}

	t.Status = domain.TripStatusStarted
	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		return triprepo.Trip{}, err
	}

	if s.events != nil {
		// Best-effort notification; the trip is started regardless.
		_ = s.events.Publish(ctx, events.BookingEvent{
			Type:       events.TypeTripStarted,
			TripID:     t.ID,
			OccurredAt: t.UpdatedAt,
		})
	}
	return t, nil
}
