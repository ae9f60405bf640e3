package paymentrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

// Repo is an in-memory implementation of paymentrepo.Repository, keyed by the
// processor reference. It is safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	byRef map[string]paymentrepo.Payment
}

func NewRepo() *Repo {
	return &Repo{
		byRef: make(map[string]paymentrepo.Payment),
	}
}

func (r *Repo) Create(ctx context.Context, p paymentrepo.Payment) error {
	_ = ctx
	if p.ProcessorRef == "" || p.ID == "" {
		return paymentrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[p.ProcessorRef]; ok {
		return paymentrepo.ErrAlreadyExists
	}
	r.byRef[p.ProcessorRef] = clonePayment(p)
	return nil
}

func (r *Repo) Save(ctx context.Context, p paymentrepo.Payment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byRef[p.ProcessorRef]
	if !ok {
		return paymentrepo.ErrNotFound
	}
	// Identity and the reference itself are immutable once set.
	p.ID, p.Sender, p.Trip, p.CreatedAt = cur.ID, cur.Sender, cur.Trip, cur.CreatedAt
	r.byRef[p.ProcessorRef] = clonePayment(p)
	return nil
}

func (r *Repo) GetByProcessorRef(ctx context.Context, ref string) (paymentrepo.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byRef[ref]
	if !ok {
		return paymentrepo.Payment{}, paymentrepo.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *Repo) FindBySenderAndTrip(ctx context.Context, sender domain.UserID, trip domain.TripID) (paymentrepo.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byRef {
		if p.Sender == sender && p.Trip == trip {
			return clonePayment(p), nil
		}
	}
	return paymentrepo.Payment{}, paymentrepo.ErrNotFound
}

func (r *Repo) ListStaleOpen(ctx context.Context, before time.Time) ([]paymentrepo.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]paymentrepo.Payment, 0)
	for _, p := range r.byRef {
		if isPreAuthorization(p.ProcessorStatus) && p.CreatedAt.Before(before) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// isPreAuthorization reports whether the mirror still sits before a confirmed
// hold: these are the records the expiry sweep cares about. Closed holds and
// holds awaiting capture are out.
func isPreAuthorization(s processor.Status) bool {
	return !s.Final() && s != processor.StatusRequiresCapture
}

func clonePayment(p paymentrepo.Payment) paymentrepo.Payment {
	cp := p
	if p.BookingRequest != nil {
		v := *p.BookingRequest
		cp.BookingRequest = &v
	}
	return cp
}
