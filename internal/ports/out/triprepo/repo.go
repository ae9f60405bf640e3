package triprepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID domain.TripID

	Title     string
	Organizer domain.UserID

	// Capacity counters. Invariant: 0 <= AvailableSpots <= TotalSpots and
	// 0 <= RequiredSpots <= TotalSpots, enforced at creation and preserved
	// by ReserveSpot.
	TotalSpots     int
	AvailableSpots int
	RequiredSpots  int

	// Price is the total accommodation cost for the whole trip.
	Price decimal.Decimal

	// Participants are the users whose holds were confirmed.
	// len(Participants) == TotalSpots - AvailableSpots.
	Participants []domain.UserID

	Status domain.TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MinPrice is the per-person share when the trip sells out.
func (t Trip) MinPrice() decimal.Decimal {
	return t.Price.Div(decimal.NewFromInt(int64(t.TotalSpots)))
}

// MaxPrice is the per-person share at the minimum viable group size. This is
// the worst-case amount a hold is sized to.
func (t Trip) MaxPrice() decimal.Decimal {
	return t.Price.Div(decimal.NewFromInt(int64(t.RequiredSpots)))
}

// BookedSpots is the number of spots already reserved.
func (t Trip) BookedSpots() int {
	return t.TotalSpots - t.AvailableSpots
}

// RequiredSpotsMet reports whether enough spots are booked for the trip to be
// viable.
func (t Trip) RequiredSpotsMet() bool {
	return t.BookedSpots() >= t.RequiredSpots
}

// Repository provides access to persisted trips.
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)

	// ReserveSpot atomically decrements AvailableSpots and appends userID to
	// Participants, returning the updated trip.
	//
	// It fails with ErrCapacityExhausted when no spots remain and with
	// ErrTripStarted once the trip has started; in both cases nothing is
	// written. Implementations must serialize concurrent reservations on the
	// same trip so availability can never go below zero.
	ReserveSpot(ctx context.Context, id domain.TripID, userID domain.UserID) (Trip, error)
}
