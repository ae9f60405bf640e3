// Package contracttest holds behavioral contracts every repository adapter
// must satisfy. The memory and postgres adapters both run these suites, so
// the app layer can treat the backends as interchangeable.
package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
	bookingrepoport "github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/groupventure/booking-api/internal/ports/out/idempotency"
	paymentrepoport "github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
	triprepoport "github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type BookingRepoFactory func(t *testing.T) (bookingrepoport.Repository, CleanupFunc)
type PaymentRepoFactory func(t *testing.T) (paymentrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Caller:   domain.UserID("user-1"),
		Method:   "POST",
		Route:    "/payments/holds",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A different caller with the same key is a different fingerprint.
	other := fp
	other.Caller = domain.UserID("user-2")
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for other caller, ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	id := domain.TripID(uuid.NewString())
	seed := triprepoport.Trip{
		ID:             id,
		Title:          "Contract Trip",
		Organizer:      domain.UserID("org-1"),
		TotalSpots:     2,
		AvailableSpots: 2,
		RequiredSpots:  1,
		Price:          decimal.NewFromInt(100),
		Status:         domain.TripStatusNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, seed); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate Create: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Contract Trip" || !got.Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected trip: %+v", got)
	}
	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: %v", err)
	}

	// Reservations decrement availability and record the participant.
	updated, err := repo.ReserveSpot(ctx, id, domain.UserID("u1"))
	if err != nil {
		t.Fatalf("ReserveSpot: %v", err)
	}
	if updated.AvailableSpots != 1 || len(updated.Participants) != 1 || updated.Participants[0] != "u1" {
		t.Fatalf("after first reservation: %+v", updated)
	}
	if _, err := repo.ReserveSpot(ctx, id, domain.UserID("u2")); err != nil {
		t.Fatalf("ReserveSpot #2: %v", err)
	}
	if _, err := repo.ReserveSpot(ctx, id, domain.UserID("u3")); !errors.Is(err, triprepoport.ErrCapacityExhausted) {
		t.Fatalf("ReserveSpot over capacity: %v", err)
	}
	got, err = repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AvailableSpots != 0 || len(got.Participants) != 2 {
		t.Fatalf("failed reservation mutated the trip: %+v", got)
	}
	if _, err := repo.ReserveSpot(ctx, domain.TripID(uuid.NewString()), domain.UserID("u1")); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("ReserveSpot missing trip: %v", err)
	}

	// Started trips reject reservations even with spots free.
	startedID := domain.TripID(uuid.NewString())
	started := seed
	started.ID = startedID
	started.Status = domain.TripStatusStarted
	if err := repo.Create(ctx, started); err != nil {
		t.Fatalf("Create started: %v", err)
	}
	if _, err := repo.ReserveSpot(ctx, startedID, domain.UserID("u1")); !errors.Is(err, triprepoport.ErrTripStarted) {
		t.Fatalf("ReserveSpot on started trip: %v", err)
	}

	// Save overwrites.
	got.Status = domain.TripStatusStarted
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = repo.GetByID(ctx, id)
	if got.Status != domain.TripStatusStarted {
		t.Fatalf("Save did not persist: %+v", got)
	}
}

// RunTripRepoConcurrentReserve races many reservations at a single remaining
// spot: exactly one may win, and availability must never go negative.
func RunTripRepoConcurrentReserve(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	id := domain.TripID(uuid.NewString())
	if err := repo.Create(ctx, triprepoport.Trip{
		ID:             id,
		Title:          "Last Spot",
		Organizer:      domain.UserID("org-1"),
		TotalSpots:     1,
		AvailableSpots: 1,
		RequiredSpots:  1,
		Price:          decimal.NewFromInt(100),
		Status:         domain.TripStatusNotStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const contenders = 16
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.ReserveSpot(ctx, id, domain.UserID(uuid.NewString()))
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, triprepoport.ErrCapacityExhausted):
		default:
			t.Fatalf("unexpected reservation error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AvailableSpots != 0 || len(got.Participants) != 1 {
		t.Fatalf("ledger inconsistent after race: %+v", got)
	}
}

func RunBookingRepo(t *testing.T, newRepo BookingRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	trip := domain.TripID(uuid.NewString())
	id := domain.BookingRequestID(uuid.NewString())
	seed := bookingrepoport.BookingRequest{
		ID:        id,
		Organizer: domain.UserID("org-1"),
		Inquirer:  domain.UserID("u1"),
		Trip:      trip,
		Status:    domain.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Duplicate ID and duplicate logical key both fail.
	if err := repo.Create(ctx, seed); !errors.Is(err, bookingrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate ID Create: %v", err)
	}
	dupParties := seed
	dupParties.ID = domain.BookingRequestID(uuid.NewString())
	if err := repo.Create(ctx, dupParties); !errors.Is(err, bookingrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate parties Create: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("initial version = %d, want 1", got.Version)
	}
	if _, err := repo.GetByParties(ctx, "org-1", "u1", trip); err != nil {
		t.Fatalf("GetByParties: %v", err)
	}
	if _, err := repo.GetByParties(ctx, "org-1", "u2", trip); !errors.Is(err, bookingrepoport.ErrNotFound) {
		t.Fatalf("GetByParties missing: %v", err)
	}
	if _, err := repo.FindByInquirerAndTrip(ctx, "u1", trip); err != nil {
		t.Fatalf("FindByInquirerAndTrip: %v", err)
	}

	// Save requires the matching version and bumps it.
	got.Status = domain.BookingStatusAccepted
	saved, err := repo.Save(ctx, got)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version != 2 || saved.Status != domain.BookingStatusAccepted {
		t.Fatalf("after Save: %+v", saved)
	}

	// A writer holding the old version loses.
	stale := got
	stale.Status = domain.BookingStatusCanceled
	if _, err := repo.Save(ctx, stale); !errors.Is(err, bookingrepoport.ErrVersionConflict) {
		t.Fatalf("stale Save: %v", err)
	}
	check, _ := repo.GetByID(ctx, id)
	if check.Status != domain.BookingStatusAccepted || check.Version != 2 {
		t.Fatalf("stale Save wrote: %+v", check)
	}

	// Payment attachment round-trips.
	payID := domain.PaymentID(uuid.NewString())
	saved.Status = domain.BookingStatusAcceptedAndAuthorized
	saved.Payment = &payID
	saved, err = repo.Save(ctx, saved)
	if err != nil {
		t.Fatalf("Save with payment: %v", err)
	}
	check, _ = repo.GetByID(ctx, id)
	if check.Payment == nil || *check.Payment != payID {
		t.Fatalf("payment not persisted: %+v", check)
	}

	// ListByTrip returns every request for the trip, oldest first.
	second := bookingrepoport.BookingRequest{
		ID:        domain.BookingRequestID(uuid.NewString()),
		Organizer: domain.UserID("org-1"),
		Inquirer:  domain.UserID("u2"),
		Trip:      trip,
		Status:    domain.BookingStatusPending,
		CreatedAt: now.Add(time.Minute),
		UpdatedAt: now.Add(time.Minute),
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	list, err := repo.ListByTrip(ctx, trip)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(list) != 2 || list[0].ID != id || list[1].ID != second.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func RunPaymentRepo(t *testing.T, newRepo PaymentRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	trip := domain.TripID(uuid.NewString())
	ref := "pi_" + uuid.NewString()
	seed := paymentrepoport.Payment{
		ID:               domain.PaymentID(uuid.NewString()),
		Sender:           domain.UserID("u1"),
		Trip:             trip,
		ProcessorRef:     ref,
		ProcessorStatus:  processor.StatusRequiresPaymentMethod,
		TransactionValue: decimal.NewFromInt(200),
		Fee:              decimal.NewFromInt(30),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// ProcessorRef is unique.
	dup := seed
	dup.ID = domain.PaymentID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, paymentrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate ref Create: %v", err)
	}

	got, err := repo.GetByProcessorRef(ctx, ref)
	if err != nil {
		t.Fatalf("GetByProcessorRef: %v", err)
	}
	if got.Sender != "u1" || !got.TransactionValue.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected payment: %+v", got)
	}
	if _, err := repo.GetByProcessorRef(ctx, "pi_missing"); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("GetByProcessorRef missing: %v", err)
	}
	if _, err := repo.FindBySenderAndTrip(ctx, "u1", trip); err != nil {
		t.Fatalf("FindBySenderAndTrip: %v", err)
	}
	if _, err := repo.FindBySenderAndTrip(ctx, "u2", trip); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("FindBySenderAndTrip missing: %v", err)
	}

	// Save keys on the processor reference.
	bookingID := domain.BookingRequestID(uuid.NewString())
	got.ProcessorStatus = processor.StatusRequiresCapture
	got.BookingRequest = &bookingID
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	check, _ := repo.GetByProcessorRef(ctx, ref)
	if check.ProcessorStatus != processor.StatusRequiresCapture || check.BookingRequest == nil || *check.BookingRequest != bookingID {
		t.Fatalf("Save did not persist: %+v", check)
	}
	missing := seed
	missing.ProcessorRef = "pi_missing"
	if err := repo.Save(ctx, missing); !errors.Is(err, paymentrepoport.ErrNotFound) {
		t.Fatalf("Save missing: %v", err)
	}

	// ListStaleOpen: only pre-authorization statuses older than the cutoff.
	fresh := paymentrepoport.Payment{
		ID:               domain.PaymentID(uuid.NewString()),
		Sender:           domain.UserID("u2"),
		Trip:             trip,
		ProcessorRef:     "pi_" + uuid.NewString(),
		ProcessorStatus:  processor.StatusRequiresPaymentMethod,
		TransactionValue: decimal.NewFromInt(200),
		Fee:              decimal.NewFromInt(30),
		CreatedAt:        now.Add(time.Hour),
		UpdatedAt:        now.Add(time.Hour),
	}
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("Create fresh: %v", err)
	}
	stalePayments, err := repo.ListStaleOpen(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListStaleOpen: %v", err)
	}
	// seed advanced to requires_capture above, so nothing qualifies; reset it.
	for _, p := range stalePayments {
		if p.ProcessorRef == fresh.ProcessorRef {
			t.Fatalf("fresh record listed as stale")
		}
		if p.ProcessorRef == ref {
			t.Fatalf("capture-pending record listed as stale")
		}
	}

	stuck := paymentrepoport.Payment{
		ID:               domain.PaymentID(uuid.NewString()),
		Sender:           domain.UserID("u3"),
		Trip:             trip,
		ProcessorRef:     "pi_" + uuid.NewString(),
		ProcessorStatus:  processor.StatusRequiresPaymentMethod,
		TransactionValue: decimal.NewFromInt(200),
		Fee:              decimal.NewFromInt(30),
		CreatedAt:        now.Add(-time.Hour),
		UpdatedAt:        now.Add(-time.Hour),
	}
	if err := repo.Create(ctx, stuck); err != nil {
		t.Fatalf("Create stuck: %v", err)
	}
	stalePayments, err = repo.ListStaleOpen(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListStaleOpen: %v", err)
	}
	found := false
	for _, p := range stalePayments {
		if p.ProcessorRef == stuck.ProcessorRef {
			found = true
		}
	}
	if !found {
		t.Fatalf("stuck record not listed: %+v", stalePayments)
	}

	// A hold that already closed processor-side is never stale-open, no
	// matter how old it is.
	closed := paymentrepoport.Payment{
		ID:               domain.PaymentID(uuid.NewString()),
		Sender:           domain.UserID("u4"),
		Trip:             trip,
		ProcessorRef:     "pi_" + uuid.NewString(),
		ProcessorStatus:  processor.StatusCanceled,
		TransactionValue: decimal.NewFromInt(200),
		Fee:              decimal.NewFromInt(30),
		CreatedAt:        now.Add(-time.Hour),
		UpdatedAt:        now.Add(-time.Hour),
	}
	if err := repo.Create(ctx, closed); err != nil {
		t.Fatalf("Create closed: %v", err)
	}
	stalePayments, err = repo.ListStaleOpen(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListStaleOpen: %v", err)
	}
	for _, p := range stalePayments {
		if p.ProcessorRef == closed.ProcessorRef {
			t.Fatalf("closed record listed as stale")
		}
	}
}
