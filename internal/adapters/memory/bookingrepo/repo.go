package bookingrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
)

type partyKey struct {
	organizer domain.UserID
	inquirer  domain.UserID
	trip      domain.TripID
}

// Repo is an in-memory implementation of bookingrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu       sync.RWMutex
	byID     map[domain.BookingRequestID]bookingrepo.BookingRequest
	byParty  map[partyKey]domain.BookingRequestID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.BookingRequestID]bookingrepo.BookingRequest),
		byParty: make(map[partyKey]domain.BookingRequestID),
	}
}

func keyOf(b bookingrepo.BookingRequest) partyKey {
	return partyKey{organizer: b.Organizer, inquirer: b.Inquirer, trip: b.Trip}
}

func (r *Repo) Create(ctx context.Context, b bookingrepo.BookingRequest) error {
	_ = ctx
	if b.ID == "" {
		return bookingrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[b.ID]; ok {
		return bookingrepo.ErrAlreadyExists
	}
	if _, ok := r.byParty[keyOf(b)]; ok {
		return bookingrepo.ErrAlreadyExists
	}
	b.Version = 1
	r.byID[b.ID] = cloneBooking(b)
	r.byParty[keyOf(b)] = b.ID
	return nil
}

// Save applies optimistic concurrency: the write only lands when the caller's
// Version matches the stored one.
func (r *Repo) Save(ctx context.Context, b bookingrepo.BookingRequest) (bookingrepo.BookingRequest, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[b.ID]
	if !ok {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	if cur.Version != b.Version {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrVersionConflict
	}
	b.Version++
	// The logical key is immutable; keep the index pointing at the original.
	b.Organizer, b.Inquirer, b.Trip = cur.Organizer, cur.Inquirer, cur.Trip
	r.byID[b.ID] = cloneBooking(b)
	return cloneBooking(b), nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.BookingRequestID) (bookingrepo.BookingRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *Repo) GetByParties(ctx context.Context, organizer, inquirer domain.UserID, trip domain.TripID) (bookingrepo.BookingRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byParty[partyKey{organizer: organizer, inquirer: inquirer, trip: trip}]
	if !ok {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	return cloneBooking(r.byID[id]), nil
}

func (r *Repo) FindByInquirerAndTrip(ctx context.Context, inquirer domain.UserID, trip domain.TripID) (bookingrepo.BookingRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.byID {
		if b.Inquirer == inquirer && b.Trip == trip {
			return cloneBooking(b), nil
		}
	}
	return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]bookingrepo.BookingRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]bookingrepo.BookingRequest, 0)
	for _, b := range r.byID {
		if b.Trip == trip {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneBooking(b bookingrepo.BookingRequest) bookingrepo.BookingRequest {
	cp := b
	if b.Payment != nil {
		v := *b.Payment
		cp.Payment = &v
	}
	return cp
}
