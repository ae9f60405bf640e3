package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	membookingrepo "github.com/groupventure/booking-api/internal/adapters/memory/bookingrepo"
	memevents "github.com/groupventure/booking-api/internal/adapters/memory/events"
	mempaymentrepo "github.com/groupventure/booking-api/internal/adapters/memory/paymentrepo"
	memprocessor "github.com/groupventure/booking-api/internal/adapters/memory/processor"
	memtriprepo "github.com/groupventure/booking-api/internal/adapters/memory/triprepo"
	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/domain"
	portbookingrepo "github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	portprocessor "github.com/groupventure/booking-api/internal/ports/out/processor"
	porttriprepo "github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	trips    *memtriprepo.Repo
	bookings *membookingrepo.Repo
	payments *mempaymentrepo.Repo
	proc     *memprocessor.Processor
	events   *memevents.Publisher
	svc      *payments.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		trips:    memtriprepo.NewRepo(),
		bookings: membookingrepo.NewRepo(),
		payments: mempaymentrepo.NewRepo(),
		proc:     memprocessor.New(),
		events:   memevents.NewPublisher(),
	}
	f.svc = payments.NewService(
		f.trips, f.bookings, f.payments, f.proc, f.events,
		fixedClock{t: time.Unix(1000, 0).UTC()},
		payments.Options{},
	)
	return f
}

func (f *fixture) seedTrip(t *testing.T, id domain.TripID, total, required int, price string) {
	t.Helper()
	now := time.Unix(500, 0).UTC()
	if err := f.trips.Create(context.Background(), porttriprepo.Trip{
		ID:             id,
		Title:          "Ski Week " + string(id),
		Organizer:      "org-1",
		TotalSpots:     total,
		AvailableSpots: total,
		RequiredSpots:  required,
		Price:          dec(price),
		Status:         domain.TripStatusNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
}

func (f *fixture) seedBooking(t *testing.T, id domain.BookingRequestID, inquirer domain.UserID, trip domain.TripID, status domain.BookingStatus) {
	t.Helper()
	now := time.Unix(600, 0).UTC()
	if err := f.bookings.Create(context.Background(), portbookingrepo.BookingRequest{
		ID:        id,
		Organizer: "org-1",
		Inquirer:  inquirer,
		Trip:      trip,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

// authorize walks a participant through hold creation, out-of-band completion
// and confirmation.
func (f *fixture) authorize(t *testing.T, user domain.UserID, trip domain.TripID, booking domain.BookingRequestID) string {
	t.Helper()
	ctx := context.Background()
	hc, err := f.svc.RequestHold(ctx, user, trip, "")
	if err != nil {
		t.Fatalf("RequestHold(%s): %v", user, err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)
	if _, err := f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, booking); err != nil {
		t.Fatalf("ConfirmAuthorization(%s): %v", user, err)
	}
	return hc.Payment.ProcessorRef
}

func appErr(t *testing.T, err error) *payments.Error {
	t.Helper()
	var ae *payments.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *payments.Error, got %v", err)
	}
	return ae
}

func TestService_AuthorizationFee_UsesWorstCasePrice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")

	q, err := f.svc.AuthorizationFee(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AuthorizationFee: %v", err)
	}
	if !q.OrderAmount.Equal(dec("200")) {
		t.Fatalf("order amount = %s, want 200", q.OrderAmount)
	}
	if !q.Fee.Equal(dec("30")) {
		t.Fatalf("fee = %s, want 30", q.Fee)
	}
}

func TestService_RequestHold_OpensMirrorAfterProcessorHold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")

	hc, err := f.svc.RequestHold(context.Background(), "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	if hc.ClientSecret == "" {
		t.Fatalf("expected a client secret")
	}
	if hc.Payment.ProcessorRef == "" {
		t.Fatalf("expected a processor reference")
	}
	// Hold is sized to worst-case price (200) plus fee (30), in minor units.
	if got := f.proc.HeldMinor(hc.Payment.ProcessorRef); got != 23000 {
		t.Fatalf("held amount = %d, want 23000", got)
	}
	if !hc.Payment.TransactionValue.Equal(dec("200")) || !hc.Payment.Fee.Equal(dec("30")) {
		t.Fatalf("payment amounts = %s/%s, want 200/30", hc.Payment.TransactionValue, hc.Payment.Fee)
	}

	stored, err := f.payments.GetByProcessorRef(context.Background(), hc.Payment.ProcessorRef)
	if err != nil {
		t.Fatalf("GetByProcessorRef: %v", err)
	}
	if stored.Sender != "u1" || stored.Trip != "t1" {
		t.Fatalf("stored payment = %+v", stored)
	}
}

func TestService_RequestHold_SameIdempotencyKeyConverges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	ctx := context.Background()

	first, err := f.svc.RequestHold(ctx, "u1", "t1", "key-1")
	if err != nil {
		t.Fatalf("RequestHold #1: %v", err)
	}
	second, err := f.svc.RequestHold(ctx, "u1", "t1", "key-1")
	if err != nil {
		t.Fatalf("RequestHold #2: %v", err)
	}
	if first.Payment.ProcessorRef != second.Payment.ProcessorRef {
		t.Fatalf("references diverged: %s vs %s", first.Payment.ProcessorRef, second.Payment.ProcessorRef)
	}
	if first.Payment.ID != second.Payment.ID {
		t.Fatalf("payment records diverged: %s vs %s", first.Payment.ID, second.Payment.ID)
	}
}

func TestService_RequestHold_ProcessorDownSurfacesRetryable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.proc.FailCreate = portprocessor.ErrUnavailable

	_, err := f.svc.RequestHold(context.Background(), "u1", "t1", "")
	if ae := appErr(t, err); ae.Code != "PROCESSOR_UNAVAILABLE" || ae.Status != 503 {
		t.Fatalf("err = %+v", ae)
	}
}

func TestService_ConfirmAuthorization_ReconcilesAllThree(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	hc, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	pay, err := f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1")
	if err != nil {
		t.Fatalf("ConfirmAuthorization: %v", err)
	}
	if pay.ProcessorStatus != portprocessor.StatusRequiresCapture {
		t.Fatalf("payment status = %s", pay.ProcessorStatus)
	}
	if pay.BookingRequest == nil || *pay.BookingRequest != "b1" {
		t.Fatalf("payment booking link = %v", pay.BookingRequest)
	}

	b, err := f.bookings.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if b.Status != domain.BookingStatusAcceptedAndAuthorized {
		t.Fatalf("booking status = %s", b.Status)
	}
	if b.Payment == nil || *b.Payment != pay.ID {
		t.Fatalf("booking payment link = %v", b.Payment)
	}

	tr, err := f.trips.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("trip GetByID: %v", err)
	}
	if tr.AvailableSpots != 3 {
		t.Fatalf("available spots = %d, want 3", tr.AvailableSpots)
	}
	if len(tr.Participants) != 1 || tr.Participants[0] != "u1" {
		t.Fatalf("participants = %v", tr.Participants)
	}

	evs := f.events.Published()
	if len(evs) != 1 || evs[0].Type != "BOOKING_AUTHORIZED" {
		t.Fatalf("events = %+v", evs)
	}
}

func TestService_ConfirmAuthorization_ReplayIsANoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	ref := f.authorize(t, "u1", "t1", "b1")

	// The confirming page reloads and fires again.
	pay, err := f.svc.ConfirmAuthorization(ctx, ref, "b1")
	if err != nil {
		t.Fatalf("replayed ConfirmAuthorization: %v", err)
	}
	if pay.BookingRequest == nil || *pay.BookingRequest != "b1" {
		t.Fatalf("payment link = %v", pay.BookingRequest)
	}

	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 3 {
		t.Fatalf("replay reserved a second spot: available = %d", tr.AvailableSpots)
	}
	if len(tr.Participants) != 1 {
		t.Fatalf("replay duplicated the participant: %v", tr.Participants)
	}
}

func TestService_ConfirmAuthorization_HoldNotReadyLeavesEverythingUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	hc, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	// Customer never completed the hold: still requires_payment_method.

	_, err = f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1")
	if ae := appErr(t, err); ae.Code != "AUTHORIZATION_NOT_READY" {
		t.Fatalf("err = %+v", ae)
	}

	b, _ := f.bookings.GetByID(ctx, "b1")
	if b.Status != domain.BookingStatusAccepted || b.Payment != nil {
		t.Fatalf("booking mutated: %+v", b)
	}
	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 4 {
		t.Fatalf("spot reserved for an unconfirmed hold: available = %d", tr.AvailableSpots)
	}
}

func TestService_ConfirmAuthorization_PendingBookingIsIllegal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusPending)
	ctx := context.Background()

	hc, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	_, err = f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1")
	if ae := appErr(t, err); ae.Code != "ILLEGAL_TRANSITION" {
		t.Fatalf("err = %+v", ae)
	}
}

func TestService_ConfirmAuthorization_CapacityExhaustedCompensates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 1, 1, "100")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	f.seedBooking(t, "b2", "u2", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	f.authorize(t, "u1", "t1", "b1")

	// u2 completed a hold too, but u1 took the last spot.
	hc, err := f.svc.RequestHold(ctx, "u2", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	_, err = f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b2")
	ae := appErr(t, err)
	if ae.Code != "CAPACITY_EXHAUSTED" {
		t.Fatalf("err = %+v", ae)
	}

	// The loser's booking is compensated back to accepted with no payment
	// attached; the trip still has exactly one participant.
	b2, _ := f.bookings.GetByID(ctx, "b2")
	if b2.Status != domain.BookingStatusAccepted || b2.Payment != nil {
		t.Fatalf("booking not compensated: %+v", b2)
	}
	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 0 || len(tr.Participants) != 1 {
		t.Fatalf("trip = %+v", tr)
	}
}

func TestService_ConfirmAuthorization_ProcessorUnreachableIsRetryable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	hc, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	f.proc.FailStatus = portprocessor.ErrUnavailable
	_, err = f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1")
	if ae := appErr(t, err); ae.Code != "PROCESSOR_UNAVAILABLE" {
		t.Fatalf("err = %+v", ae)
	}

	// Retry with the same reference succeeds once the processor is back.
	f.proc.FailStatus = nil
	if _, err := f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1"); err != nil {
		t.Fatalf("retried ConfirmAuthorization: %v", err)
	}
}

var errStoreDown = errors.New("store down")

// flakyBookingRepo wraps a booking repository with failure injection: Save can
// be made to fail on a specific call, and GetByID can serve one stale snapshot
// to simulate a concurrent writer between read and save.
type flakyBookingRepo struct {
	portbookingrepo.Repository
	saveCalls  int
	failSaveOn int
	staleGet   *portbookingrepo.BookingRequest
}

func (r *flakyBookingRepo) Save(ctx context.Context, b portbookingrepo.BookingRequest) (portbookingrepo.BookingRequest, error) {
	r.saveCalls++
	if r.failSaveOn != 0 && r.saveCalls == r.failSaveOn {
		return portbookingrepo.BookingRequest{}, errStoreDown
	}
	return r.Repository.Save(ctx, b)
}

func (r *flakyBookingRepo) GetByID(ctx context.Context, id domain.BookingRequestID) (portbookingrepo.BookingRequest, error) {
	if r.staleGet != nil {
		b := *r.staleGet
		r.staleGet = nil
		return b, nil
	}
	return r.Repository.GetByID(ctx, id)
}

func TestService_ConfirmAuthorization_RejectsForeignHold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	f.seedBooking(t, "b2", "u2", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	hc, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	// u1's hold cannot authorize u2's booking.
	_, err = f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b2")
	if ae := appErr(t, err); ae.Code != "PAYMENT_MISMATCH" || ae.Status != 409 {
		t.Fatalf("err = %+v", ae)
	}

	b2, _ := f.bookings.GetByID(ctx, "b2")
	if b2.Status != domain.BookingStatusAccepted || b2.Payment != nil {
		t.Fatalf("foreign booking mutated: %+v", b2)
	}
	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 4 {
		t.Fatalf("spot reserved for rejected confirm: available = %d", tr.AvailableSpots)
	}

	// The hold is still usable by its owner.
	if _, err := f.svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1"); err != nil {
		t.Fatalf("owner ConfirmAuthorization: %v", err)
	}

	// An authorized booking replayed with someone else's reference is also a
	// mismatch, not a silent success.
	other, err := f.svc.RequestHold(ctx, "u2", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold(u2): %v", err)
	}
	f.proc.SetStatus(other.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)
	_, err = f.svc.ConfirmAuthorization(ctx, other.Payment.ProcessorRef, "b1")
	if ae := appErr(t, err); ae.Code != "PAYMENT_MISMATCH" {
		t.Fatalf("replay err = %+v", ae)
	}
}

func TestService_ConfirmAuthorization_CompensationFailureSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 1, 1, "100")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	f.seedBooking(t, "b2", "u2", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	flaky := &flakyBookingRepo{Repository: f.bookings}
	svc := payments.NewService(
		f.trips, flaky, f.payments, f.proc, f.events,
		fixedClock{t: time.Unix(1000, 0).UTC()},
		payments.Options{},
	)

	hc1, err := svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold(u1): %v", err)
	}
	f.proc.SetStatus(hc1.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)
	if _, err := svc.ConfirmAuthorization(ctx, hc1.Payment.ProcessorRef, "b1"); err != nil {
		t.Fatalf("ConfirmAuthorization(b1): %v", err)
	}

	hc2, err := svc.RequestHold(ctx, "u2", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold(u2): %v", err)
	}
	f.proc.SetStatus(hc2.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	// u1 took the last spot; u2's confirm wins the CAS, fails to reserve, and
	// the store goes down right before the compensating write.
	flaky.saveCalls = 0
	flaky.failSaveOn = 2

	_, err = svc.ConfirmAuthorization(ctx, hc2.Payment.ProcessorRef, "b2")
	ae := appErr(t, err)
	if ae.Code != "COMPENSATION_FAILED" || ae.Status != 500 {
		t.Fatalf("err = %+v", ae)
	}

	// The stranded state is reported, not papered over: the booking sits
	// authorized without a spot until an operator reconciles it.
	b2, _ := f.bookings.GetByID(ctx, "b2")
	if b2.Status != domain.BookingStatusAcceptedAndAuthorized {
		t.Fatalf("booking = %+v", b2)
	}
	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 0 || len(tr.Participants) != 1 {
		t.Fatalf("trip = %+v", tr)
	}
}

func TestService_ConfirmAuthorization_LostVersionRaceReturnsExistingPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	f.seedBooking(t, "b1", "u1", "t1", domain.BookingStatusAccepted)
	ctx := context.Background()

	flaky := &flakyBookingRepo{Repository: f.bookings}
	svc := payments.NewService(
		f.trips, flaky, f.payments, f.proc, f.events,
		fixedClock{t: time.Unix(1000, 0).UTC()},
		payments.Options{},
	)

	hc, err := svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	f.proc.SetStatus(hc.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	stale, err := f.bookings.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if _, err := svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1"); err != nil {
		t.Fatalf("first ConfirmAuthorization: %v", err)
	}

	// A second confirm raced past the idempotency guard on a stale read; its
	// version check loses and it must settle on the winner's result.
	flaky.staleGet = &stale
	pay, err := svc.ConfirmAuthorization(ctx, hc.Payment.ProcessorRef, "b1")
	if err != nil {
		t.Fatalf("racing ConfirmAuthorization: %v", err)
	}
	if pay.BookingRequest == nil || *pay.BookingRequest != "b1" {
		t.Fatalf("payment link = %v", pay.BookingRequest)
	}

	tr, _ := f.trips.GetByID(ctx, "t1")
	if tr.AvailableSpots != 3 || len(tr.Participants) != 1 {
		t.Fatalf("loser reserved a second spot: %+v", tr)
	}
}

func TestService_ExpireStaleHolds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTrip(t, "t1", 4, 2, "400")
	ctx := context.Background()

	stuck, err := f.svc.RequestHold(ctx, "u1", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	advanced, err := f.svc.RequestHold(ctx, "u2", "t1", "")
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	// u2's hold completed at the processor even though confirm never came.
	f.proc.SetStatus(advanced.Payment.ProcessorRef, portprocessor.StatusRequiresCapture)

	// Records were created at clock time 1000; the default TTL has long
	// passed by the sweep clock below.
	sweep := payments.NewService(
		f.trips, f.bookings, f.payments, f.proc, f.events,
		fixedClock{t: time.Unix(1000, 0).UTC().Add(48 * time.Hour)},
		payments.Options{},
	)
	n, err := sweep.ExpireStaleHolds(ctx)
	if err != nil {
		t.Fatalf("ExpireStaleHolds: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	p1, _ := f.payments.GetByProcessorRef(ctx, stuck.Payment.ProcessorRef)
	if p1.ProcessorStatus != portprocessor.StatusExpired {
		t.Fatalf("stuck hold status = %s, want expired", p1.ProcessorStatus)
	}
	p2, _ := f.payments.GetByProcessorRef(ctx, advanced.Payment.ProcessorRef)
	if p2.ProcessorStatus != portprocessor.StatusRequiresCapture {
		t.Fatalf("advanced hold status = %s, want requires_capture", p2.ProcessorStatus)
	}
}
