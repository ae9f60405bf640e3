package triprepo

import (
	"context"
	"sync"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use: the repo mutex is the single-writer section
// that serializes reservations on a trip.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return triprepo.ErrNotFound
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (r *Repo) ReserveSpot(ctx context.Context, id domain.TripID, userID domain.UserID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	if t.Status == domain.TripStatusStarted {
		return triprepo.Trip{}, triprepo.ErrTripStarted
	}
	if t.AvailableSpots <= 0 {
		return triprepo.Trip{}, triprepo.ErrCapacityExhausted
	}
	t = cloneTrip(t)
	t.AvailableSpots--
	t.Participants = append(t.Participants, userID)
	r.byID[id] = t
	return cloneTrip(t), nil
}

func cloneTrip(t triprepo.Trip) triprepo.Trip {
	cp := t
	if t.Participants != nil {
		cp.Participants = append([]domain.UserID(nil), t.Participants...)
	}
	return cp
}
