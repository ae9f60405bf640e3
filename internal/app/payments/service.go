package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	"github.com/groupventure/booking-api/internal/ports/out/clock"
	"github.com/groupventure/booking-api/internal/ports/out/events"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// Service is the booking-payment orchestration engine: it ties the booking
// request state machine, the trip capacity ledger and the external processor
// together across the authorization and capture phases.
type Service struct {
	trips    triprepo.Repository
	bookings bookingrepo.Repository
	payments paymentrepo.Repository
	proc     processor.Processor
	events   events.Publisher
	clk      clock.Clock

	policy   domain.FeePolicy
	currency string
	holdTTL  time.Duration

	newPaymentID func() domain.PaymentID
}

// Options tunes policy knobs; zero values fall back to defaults.
type Options struct {
	Policy *domain.FeePolicy
	// Currency is the processor-side currency code for every amount.
	Currency string
	// HoldTTL is how long an unconfirmed hold may sit in a pre-authorization
	// status before the expiry sweep marks it expired.
	HoldTTL time.Duration
}

func NewService(
	tripsRepo triprepo.Repository,
	bookingsRepo bookingrepo.Repository,
	paymentsRepo paymentrepo.Repository,
	proc processor.Processor,
	pub events.Publisher,
	clk clock.Clock,
	opts Options,
) *Service {
	policy := domain.DefaultFeePolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	currency := opts.Currency
	if currency == "" {
		currency = "eur"
	}
	holdTTL := opts.HoldTTL
	if holdTTL <= 0 {
		holdTTL = 24 * time.Hour
	}
	return &Service{
		trips:    tripsRepo,
		bookings: bookingsRepo,
		payments: paymentsRepo,
		proc:     proc,
		events:   pub,
		clk:      clk,
		policy:   policy,
		currency: currency,
		holdTTL:  holdTTL,
		newPaymentID: func() domain.PaymentID {
			return domain.PaymentID(uuid.NewString())
		},
	}
}

// SetNewPaymentIDForTest overrides payment ID generation for deterministic
// tests. It should not be used in production code.
func (s *Service) SetNewPaymentIDForTest(fn func() domain.PaymentID) {
	if fn != nil {
		s.newPaymentID = fn
	}
}

// AuthorizationFee quotes the fee for authorizing a hold on a trip. The order
// amount is the trip's current worst-case per-person price.
func (s *Service) AuthorizationFee(ctx context.Context, tripID domain.TripID) (FeeQuote, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return FeeQuote{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return FeeQuote{}, err
	}
	order := t.MaxPrice()
	return FeeQuote{OrderAmount: order, Fee: s.policy.Fee(order, nil)}, nil
}

// GetByProcessorRef returns the local mirror for a processor reference.
func (s *Service) GetByProcessorRef(ctx context.Context, ref string) (paymentrepo.Payment, error) {
	if ref == "" {
		return paymentrepo.Payment{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "processor reference is required"}
	}
	p, err := s.payments.GetByProcessorRef(ctx, ref)
	if err != nil {
		if errors.Is(err, paymentrepo.ErrNotFound) {
			return paymentrepo.Payment{}, &Error{Status: 404, Code: "PAYMENT_NOT_FOUND", Message: "no payment for this processor reference"}
		}
		return paymentrepo.Payment{}, err
	}
	return p, nil
}

// RequestHold asks the processor to hold the worst-case price plus fee for
// userID on a trip, then opens the local payment record mirroring it.
//
// The processor reference is allocated before any local row references it; a
// retried call with the same idempotency key reuses the processor-side hold
// and converges on the same payment record.
func (s *Service) RequestHold(ctx context.Context, userID domain.UserID, tripID domain.TripID, idempotencyKey string) (HoldCreated, error) {
	if userID == "" || tripID == "" {
		return HoldCreated{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "user and trip are required"}
	}

	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return HoldCreated{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return HoldCreated{}, err
	}
	if t.Status == domain.TripStatusStarted {
		return HoldCreated{}, &Error{Status: 409, Code: "TRIP_ALREADY_STARTED", Message: "trip already started"}
	}

	order := t.MaxPrice()
	fee := s.policy.Fee(order, nil)
	amountMinor := domain.MinorUnits(order.Add(fee))

	hold, err := s.proc.CreateHold(ctx, amountMinor, s.currency, idempotencyKey)
	if err != nil {
		return HoldCreated{}, s.mapProcessorError(err)
	}

	now := s.clk.Now()
	p := paymentrepo.Payment{
		ID:               s.newPaymentID(),
		Sender:           userID,
		Trip:             tripID,
		ProcessorRef:     hold.Reference,
		ProcessorStatus:  hold.Status,
		TransactionValue: order,
		Fee:              fee,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, paymentrepo.ErrAlreadyExists) {
			// Retried hold creation: the processor deduplicated via the
			// idempotency key, so the mirror row already exists.
			existing, gerr := s.payments.GetByProcessorRef(ctx, hold.Reference)
			if gerr != nil {
				return HoldCreated{}, gerr
			}
			return HoldCreated{Payment: existing, ClientSecret: hold.ClientSecret}, nil
		}
		return HoldCreated{}, err
	}
	return HoldCreated{Payment: p, ClientSecret: hold.ClientSecret}, nil
}

// ConfirmAuthorization reconciles a completed hold: it verifies the processor
// reports capture-pending, advances the booking request to
// accepted_and_authorized with the payment attached, reserves the spot, and
// updates the payment mirror.
//
// The call is idempotent: once the booking is authorized (or captured), the
// existing payment is returned unchanged no matter how many times the client
// fires the confirmation.
func (s *Service) ConfirmAuthorization(ctx context.Context, processorRef string, bookingID domain.BookingRequestID) (paymentrepo.Payment, error) {
	if processorRef == "" || bookingID == "" {
		return paymentrepo.Payment{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "processor reference and booking request are required"}
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrNotFound) {
			return paymentrepo.Payment{}, &Error{Status: 404, Code: "BOOKING_REQUEST_NOT_FOUND", Message: "booking request not found"}
		}
		return paymentrepo.Payment{}, err
	}

	// Idempotency guard. The confirming client action can legitimately fire
	// more than once (page reloads); replays must cause no further effects.
	if b.Status.Authorized() {
		pay, err := s.GetByProcessorRef(ctx, processorRef)
		if err != nil {
			return paymentrepo.Payment{}, err
		}
		if pay.BookingRequest == nil || *pay.BookingRequest != b.ID {
			return paymentrepo.Payment{}, paymentMismatch(b)
		}
		return pay, nil
	}

	pay, err := s.payments.GetByProcessorRef(ctx, processorRef)
	if err != nil {
		if errors.Is(err, paymentrepo.ErrNotFound) {
			return paymentrepo.Payment{}, &Error{Status: 404, Code: "PAYMENT_NOT_FOUND", Message: "no payment for this processor reference"}
		}
		return paymentrepo.Payment{}, err
	}

	// The hold must have been opened by this booking's inquirer for this
	// booking's trip; otherwise one payment could back a foreign booking.
	if pay.Trip != b.Trip || pay.Sender != b.Inquirer {
		return paymentrepo.Payment{}, paymentMismatch(b)
	}

	if !domain.CanTransition(b.Status, domain.BookingStatusAcceptedAndAuthorized) {
		return paymentrepo.Payment{}, &Error{
			Status:  409,
			Code:    "ILLEGAL_TRANSITION",
			Message: "booking request must be accepted before authorization",
			Details: map[string]any{"from": string(b.Status)},
		}
	}

	// The spot may only be reserved after the processor has confirmed the
	// hold exists; a reversed order would reserve spots for holds that never
	// materialize.
	st, err := s.proc.GetStatus(ctx, processorRef)
	if err != nil {
		return paymentrepo.Payment{}, s.mapProcessorError(err)
	}
	if st != processor.StatusRequiresCapture {
		return paymentrepo.Payment{}, &Error{
			Status:  409,
			Code:    "AUTHORIZATION_NOT_READY",
			Message: "hold is not awaiting capture",
			Details: map[string]any{"processorStatus": string(st)},
		}
	}

	// Winner lock: the version check makes exactly one concurrent confirm
	// advance the booking, so the idempotency guard cannot be raced past.
	b.Status = domain.BookingStatusAcceptedAndAuthorized
	b.Payment = &pay.ID
	b.UpdatedAt = s.clk.Now()
	won, err := s.bookings.Save(ctx, b)
	if err != nil {
		if errors.Is(err, bookingrepo.ErrVersionConflict) {
			latest, gerr := s.bookings.GetByID(ctx, bookingID)
			if gerr == nil && latest.Status.Authorized() {
				return s.GetByProcessorRef(ctx, processorRef)
			}
			return paymentrepo.Payment{}, &Error{Status: 409, Code: "CONFLICT", Message: "booking request was modified concurrently, retry"}
		}
		return paymentrepo.Payment{}, err
	}

	if _, err := s.trips.ReserveSpot(ctx, b.Trip, b.Inquirer); err != nil {
		// The booking must not stay authorized without a spot: compensate
		// before surfacing. The processor-side hold still exists and needs
		// out-of-band reconciliation, which is why exhaustion is reported
		// distinctly from processor failures.
		if rerr := s.revertAuthorization(ctx, won); rerr != nil {
			// The booking is stranded in accepted_and_authorized without a
			// spot; only an operator can untangle it now.
			return paymentrepo.Payment{}, &Error{
				Status:  500,
				Code:    "COMPENSATION_FAILED",
				Message: "booking could not be reverted after a failed reservation; manual reconciliation required",
				Details: map[string]any{"bookingRequest": string(won.ID), "cause": rerr.Error()},
			}
		}
		switch {
		case errors.Is(err, triprepo.ErrCapacityExhausted):
			return paymentrepo.Payment{}, &Error{Status: 409, Code: "CAPACITY_EXHAUSTED", Message: "trip has no available spots; the hold must be released by an operator"}
		case errors.Is(err, triprepo.ErrTripStarted):
			return paymentrepo.Payment{}, &Error{Status: 409, Code: "TRIP_ALREADY_STARTED", Message: "trip already started"}
		default:
			return paymentrepo.Payment{}, err
		}
	}

	pay.ProcessorStatus = st
	pay.BookingRequest = &won.ID
	pay.UpdatedAt = s.clk.Now()
	if err := s.payments.Save(ctx, pay); err != nil {
		return paymentrepo.Payment{}, err
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, events.BookingEvent{
			Type:           events.TypeBookingAuthorized,
			TripID:         b.Trip,
			BookingRequest: won.ID,
			Inquirer:       b.Inquirer,
			ProcessorRef:   pay.ProcessorRef,
			OccurredAt:     pay.UpdatedAt,
		})
	}
	return pay, nil
}

// revertAuthorization is the compensating write for a reservation that could
// not be completed: the booking goes back to accepted with no payment
// attached.
func (s *Service) revertAuthorization(ctx context.Context, b bookingrepo.BookingRequest) error {
	b.Status = domain.BookingStatusAccepted
	b.Payment = nil
	b.UpdatedAt = s.clk.Now()
	_, err := s.bookings.Save(ctx, b)
	return err
}

func paymentMismatch(b bookingrepo.BookingRequest) *Error {
	return &Error{
		Status:  409,
		Code:    "PAYMENT_MISMATCH",
		Message: "payment does not belong to this booking request",
		Details: map[string]any{"bookingRequest": string(b.ID)},
	}
}

// ExpireStaleHolds sweeps payment records stuck in a pre-authorization status
// past the policy window. Each is re-checked against the processor first: a
// hold that advanced in the meantime is reconciled instead of expired. The
// number of records marked expired is returned.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.clk.Now().Add(-s.holdTTL)
	stale, err := s.payments.ListStaleOpen(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range stale {
		st, err := s.proc.GetStatus(ctx, p.ProcessorRef)
		switch {
		case errors.Is(err, processor.ErrHoldNotFound):
			st = processor.StatusExpired
		case err != nil:
			// Processor unreachable; leave the record for the next sweep.
			continue
		case st == p.ProcessorStatus:
			// Still sitting where it was: past the window, expire it.
			st = processor.StatusExpired
		}

		p.ProcessorStatus = st
		p.UpdatedAt = s.clk.Now()
		if err := s.payments.Save(ctx, p); err != nil {
			return expired, err
		}
		if st == processor.StatusExpired {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) mapProcessorError(err error) error {
	switch {
	case errors.Is(err, processor.ErrUnavailable):
		return &Error{Status: 503, Code: "PROCESSOR_UNAVAILABLE", Message: "payment processor unavailable, retry with the same reference"}
	case errors.Is(err, processor.ErrDeclined):
		return &Error{Status: 402, Code: "PROCESSOR_DECLINED", Message: "payment declined"}
	case errors.Is(err, processor.ErrHoldNotFound):
		return &Error{Status: 404, Code: "PAYMENT_NOT_FOUND", Message: "hold not found at processor"}
	default:
		return err
	}
}
