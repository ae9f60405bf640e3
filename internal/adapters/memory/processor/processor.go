package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

type hold struct {
	status        processor.Status
	heldMinor     int64
	capturedMinor int64
}

// Processor is an in-memory stand-in for the external payment processor,
// used by tests and local development. New holds start in
// requires_payment_method; tests drive them forward with SetStatus, standing
// in for the customer completing the hold out-of-band.
//
// It is safe for concurrent use.
type Processor struct {
	mu     sync.Mutex
	seq    int
	holds  map[string]*hold
	byIdem map[string]string

	// Fault injection: when set, the corresponding call fails with the given
	// error instead of touching any hold.
	FailCreate  error
	FailStatus  error
	FailCapture error
}

func New() *Processor {
	return &Processor{
		holds:  make(map[string]*hold),
		byIdem: make(map[string]string),
	}
}

func (p *Processor) CreateHold(ctx context.Context, amountMinor int64, currency string, idempotencyKey string) (processor.Hold, error) {
	_ = ctx
	_ = currency
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCreate != nil {
		return processor.Hold{}, p.FailCreate
	}
	if idempotencyKey != "" {
		if ref, ok := p.byIdem[idempotencyKey]; ok {
			h := p.holds[ref]
			return processor.Hold{Reference: ref, ClientSecret: ref + "_secret", Status: h.status}, nil
		}
	}
	p.seq++
	ref := fmt.Sprintf("pi_mem_%06d", p.seq)
	p.holds[ref] = &hold{status: processor.StatusRequiresPaymentMethod, heldMinor: amountMinor}
	if idempotencyKey != "" {
		p.byIdem[idempotencyKey] = ref
	}
	return processor.Hold{Reference: ref, ClientSecret: ref + "_secret", Status: processor.StatusRequiresPaymentMethod}, nil
}

func (p *Processor) GetStatus(ctx context.Context, reference string) (processor.Status, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailStatus != nil {
		return "", p.FailStatus
	}
	h, ok := p.holds[reference]
	if !ok {
		return "", processor.ErrHoldNotFound
	}
	return h.status, nil
}

func (p *Processor) Capture(ctx context.Context, reference string, amountMinor int64) (processor.Status, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCapture != nil {
		return "", p.FailCapture
	}
	h, ok := p.holds[reference]
	if !ok {
		return "", processor.ErrHoldNotFound
	}
	if h.status != processor.StatusRequiresCapture {
		return "", processor.ErrDeclined
	}
	if amountMinor > h.heldMinor {
		return "", processor.ErrDeclined
	}
	h.status = processor.StatusSucceeded
	h.capturedMinor = amountMinor
	return h.status, nil
}

// SetStatus forces a hold into a processor-side state (e.g. the customer
// completed the hold and it now awaits capture).
func (p *Processor) SetStatus(reference string, st processor.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.holds[reference]; ok {
		h.status = st
	}
}

// HeldMinor returns the amount a hold was created for.
func (p *Processor) HeldMinor(reference string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.holds[reference]; ok {
		return h.heldMinor
	}
	return 0
}

// CapturedMinor returns the amount captured against a hold, 0 if none.
func (p *Processor) CapturedMinor(reference string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.holds[reference]; ok {
		return h.capturedMinor
	}
	return 0
}
