package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/groupventure/booking-api/internal/adapters/memory/bookingrepo"
	"github.com/groupventure/booking-api/internal/adapters/memory/events"
	"github.com/groupventure/booking-api/internal/adapters/memory/idempotency"
	"github.com/groupventure/booking-api/internal/adapters/memory/paymentrepo"
	memproc "github.com/groupventure/booking-api/internal/adapters/memory/processor"
	"github.com/groupventure/booking-api/internal/adapters/memory/triprepo"
	"github.com/groupventure/booking-api/internal/app/bookings"
	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/app/trips"
	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type apiFixture struct {
	handler http.Handler
	proc    *memproc.Processor
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clk := fixedClock{t: time.Unix(1000, 0).UTC()}
	tripsRepo := triprepo.NewRepo()
	bookingsRepo := bookingrepo.NewRepo()
	paymentsRepo := paymentrepo.NewRepo()
	proc := memproc.New()
	pub := events.NewPublisher()

	tripsSvc := trips.NewService(tripsRepo, pub, clk)
	bookingsSvc := bookings.NewService(bookingsRepo, tripsRepo, clk)
	paymentsSvc := payments.NewService(tripsRepo, bookingsRepo, paymentsRepo, proc, pub, clk, payments.Options{})

	var tripSeq, bookingSeq, paymentSeq int
	tripsSvc.SetNewTripIDForTest(func() domain.TripID {
		tripSeq++
		return domain.TripID(fmt.Sprintf("trip-%d", tripSeq))
	})
	bookingsSvc.SetNewBookingIDForTest(func() domain.BookingRequestID {
		bookingSeq++
		return domain.BookingRequestID(fmt.Sprintf("booking-%d", bookingSeq))
	})
	paymentsSvc.SetNewPaymentIDForTest(func() domain.PaymentID {
		paymentSeq++
		return domain.PaymentID(fmt.Sprintf("payment-%d", paymentSeq))
	})

	srv := NewServer(tripsSvc, bookingsSvc, paymentsSvc, idempotency.NewStore())
	return &apiFixture{
		handler: NewRouter(srv, NewDevAuthMiddleware("")),
		proc:    proc,
	}
}

// do performs a request as the given user and decodes the JSON response into
// out when out is non-nil.
func (f *apiFixture) do(t *testing.T, method, path, user string, body any, out any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-Debug-User", user)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response (%d %s): %v", rec.Code, rec.Body.String(), err)
		}
	}
	return rec
}

func (f *apiFixture) createTrip(t *testing.T, organizer string) tripResponse {
	t.Helper()
	var tr tripResponse
	rec := f.do(t, http.MethodPost, "/trips", organizer, map[string]any{
		"title":         "Alps weekend",
		"totalSpots":    4,
		"requiredSpots": 2,
		"price":         "400",
	}, &tr, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create trip: got %d, body %s", rec.Code, rec.Body.String())
	}
	return tr
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestMissingUserIsRejected(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/trips/trip-1", "", nil, nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
	if eb := decodeError(t, rec); eb.Code != "UNAUTHORIZED" {
		t.Fatalf("got code %q, want UNAUTHORIZED", eb.Code)
	}
}

func TestTripCreateAndGet(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	tr := f.createTrip(t, "organizer-1")
	if tr.ID != "trip-1" || tr.Organizer != "organizer-1" {
		t.Fatalf("unexpected trip: %+v", tr)
	}
	if tr.MinPrice.String() != "100" || tr.MaxPrice.String() != "200" {
		t.Fatalf("got min %s max %s, want 100/200", tr.MinPrice, tr.MaxPrice)
	}

	var got tripResponse
	rec := f.do(t, http.MethodGet, "/trips/trip-1", "someone-else", nil, &got, nil)
	if rec.Code != http.StatusOK || got.ID != tr.ID {
		t.Fatalf("get trip: %d %+v", rec.Code, got)
	}

	rec = f.do(t, http.MethodGet, "/trips/nope", "organizer-1", nil, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestTripCreateRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/trips", "organizer-1", map[string]any{
		"title": "x", "totalSpots": 4, "requiredSpots": 2, "price": "400",
		"surprise": true,
	}, nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", rec.Code)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createTrip(t, "organizer-1")

	var b bookingResponse
	rec := f.do(t, http.MethodPost, "/booking-requests", "guest-1", map[string]any{
		"organizer": "organizer-1",
		"inquirer":  "guest-1",
		"trip":      "trip-1",
	}, &b, nil)
	if rec.Code != http.StatusCreated || b.Status != string(domain.BookingStatusPending) {
		t.Fatalf("create booking: %d %+v", rec.Code, b)
	}

	// A guest cannot accept their own request.
	rec = f.do(t, http.MethodPost, "/booking-requests/"+b.ID+"/status", "guest-1",
		map[string]any{"status": "accepted"}, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("self-accept: got %d, want 403", rec.Code)
	}

	var accepted bookingResponse
	rec = f.do(t, http.MethodPost, "/booking-requests/"+b.ID+"/status", "organizer-1",
		map[string]any{"status": "accepted"}, &accepted, nil)
	if rec.Code != http.StatusOK || accepted.Status != string(domain.BookingStatusAccepted) {
		t.Fatalf("accept: %d %+v", rec.Code, accepted)
	}

	// Payment-coupled statuses are never settable through this endpoint.
	rec = f.do(t, http.MethodPost, "/booking-requests/"+b.ID+"/status", "organizer-1",
		map[string]any{"status": "accepted_and_authorized"}, nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("payment status: got %d, want 422", rec.Code)
	}

	var byParties bookingResponse
	rec = f.do(t, http.MethodGet, "/booking-requests?organizer=organizer-1&inquirer=guest-1&trip=trip-1",
		"guest-1", nil, &byParties, nil)
	if rec.Code != http.StatusOK || byParties.ID != b.ID {
		t.Fatalf("by parties: %d %+v", rec.Code, byParties)
	}

	var list struct {
		BookingRequests []bookingResponse `json:"bookingRequests"`
	}
	rec = f.do(t, http.MethodGet, "/trips/trip-1/booking-requests", "organizer-1", nil, &list, nil)
	if rec.Code != http.StatusOK || len(list.BookingRequests) != 1 {
		t.Fatalf("list: %d %+v", rec.Code, list)
	}
}

func TestAuthorizationFeeQuote(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createTrip(t, "organizer-1")

	var q feeQuoteResponse
	rec := f.do(t, http.MethodGet, "/trips/trip-1/authorization-fee", "guest-1", nil, &q, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	if q.OrderAmount.String() != "200" || q.Fee.String() != "30" {
		t.Fatalf("got order %s fee %s, want 200/30", q.OrderAmount, q.Fee)
	}
}

// bookAndHold walks one guest through request, acceptance and hold creation.
func (f *apiFixture) bookAndHold(t *testing.T, guest string) (bookingID string, hold holdResponse) {
	t.Helper()

	var b bookingResponse
	rec := f.do(t, http.MethodPost, "/booking-requests", guest, map[string]any{
		"organizer": "organizer-1", "inquirer": guest, "trip": "trip-1",
	}, &b, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/booking-requests/"+b.ID+"/status", "organizer-1",
		map[string]any{"status": "accepted"}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/payments/holds", guest,
		map[string]any{"trip": "trip-1"}, &hold, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("hold: %d %s", rec.Code, rec.Body.String())
	}
	return b.ID, hold
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createTrip(t, "organizer-1")

	booking1, hold1 := f.bookAndHold(t, "guest-1")
	if hold1.ClientSecret == "" {
		t.Fatal("hold response is missing the client secret")
	}
	ref1 := hold1.Payment.ProcessorRef
	// Worst-case share 200 plus 30 fee, held up front.
	if got := f.proc.HeldMinor(ref1); got != 23000 {
		t.Fatalf("held %d minor units, want 23000", got)
	}

	// Confirming before the client completed the hold is rejected.
	rec := f.do(t, http.MethodPost, "/payments/confirm", "guest-1", map[string]any{
		"processorRef": ref1, "bookingRequest": booking1,
	}, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("early confirm: got %d, want 409", rec.Code)
	}
	if eb := decodeError(t, rec); eb.Code != "AUTHORIZATION_NOT_READY" {
		t.Fatalf("early confirm: got code %q", eb.Code)
	}

	f.proc.SetStatus(ref1, processor.StatusRequiresCapture)

	var confirmed paymentResponse
	rec = f.do(t, http.MethodPost, "/payments/confirm", "guest-1", map[string]any{
		"processorRef": ref1, "bookingRequest": booking1,
	}, &confirmed, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	if confirmed.BookingRequest == nil || *confirmed.BookingRequest != booking1 {
		t.Fatalf("confirmed payment not attached to booking: %+v", confirmed)
	}

	booking2, hold2 := f.bookAndHold(t, "guest-2")
	ref2 := hold2.Payment.ProcessorRef
	f.proc.SetStatus(ref2, processor.StatusRequiresCapture)
	rec = f.do(t, http.MethodPost, "/payments/confirm", "guest-2", map[string]any{
		"processorRef": ref2, "bookingRequest": booking2,
	}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm guest-2: %d %s", rec.Code, rec.Body.String())
	}

	var tr tripResponse
	f.do(t, http.MethodGet, "/trips/trip-1", "organizer-1", nil, &tr, nil)
	if tr.AvailableSpots != 2 || len(tr.Participants) != 2 {
		t.Fatalf("spots not reserved: %+v", tr)
	}

	var byRef paymentResponse
	rec = f.do(t, http.MethodGet, "/payments/by-reference/"+ref1, "guest-1", nil, &byRef, nil)
	if rec.Code != http.StatusOK || byRef.ID != confirmed.ID {
		t.Fatalf("by reference: %d %+v", rec.Code, byRef)
	}

	var report captureReportResponse
	rec = f.do(t, http.MethodPost, "/trips/trip-1/capture", "organizer-1",
		map[string]any{"participants": []string{"guest-1", "guest-2"}}, &report, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("capture: %d %s", rec.Code, rec.Body.String())
	}
	if report.State != string(payments.BatchCompleted) || len(report.Entries) != 2 {
		t.Fatalf("capture report: %+v", report)
	}
	for _, e := range report.Entries {
		if e.Outcome != string(payments.OutcomeCaptured) || e.Amount == nil || e.Amount.String() != "200" {
			t.Fatalf("capture entry: %+v", e)
		}
	}
	// 200 share + 30 fee per participant in minor units.
	for _, ref := range []string{ref1, ref2} {
		if got := f.proc.CapturedMinor(ref); got != 23000 {
			t.Fatalf("captured %d minor units on %s, want 23000", got, ref)
		}
	}
}

func TestCaptureAbortReturnsReportWithError(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createTrip(t, "organizer-1")

	bookingID, hold := f.bookAndHold(t, "guest-1")
	f.proc.SetStatus(hold.Payment.ProcessorRef, processor.StatusRequiresCapture)
	rec := f.do(t, http.MethodPost, "/payments/confirm", "guest-1", map[string]any{
		"processorRef": hold.Payment.ProcessorRef, "bookingRequest": bookingID,
	}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}

	// guest-2 only has a pending request, which blocks the whole run.
	var b2 bookingResponse
	f.do(t, http.MethodPost, "/booking-requests", "guest-2", map[string]any{
		"organizer": "organizer-1", "inquirer": "guest-2", "trip": "trip-1",
	}, &b2, nil)

	rec = f.do(t, http.MethodPost, "/trips/trip-1/capture", "organizer-1",
		map[string]any{"participants": []string{"guest-1", "guest-2"}}, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409", rec.Code)
	}

	var resp struct {
		Error  errorBody             `json:"error"`
		Report captureReportResponse `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode abort body: %v", err)
	}
	if resp.Error.Code != "PARTICIPANT_NOT_AUTHORIZED" {
		t.Fatalf("got code %q", resp.Error.Code)
	}
	if resp.Report.State != string(payments.BatchAborted) {
		t.Fatalf("got state %q", resp.Report.State)
	}
	if got := resp.Report.Entries[0].Outcome; got != string(payments.OutcomeUnprocessed) {
		t.Fatalf("entry 0 outcome %q, want unprocessed", got)
	}
	if got := resp.Report.Entries[1].Outcome; got != string(payments.OutcomeNotAuthorized) {
		t.Fatalf("entry 1 outcome %q, want not_authorized", got)
	}
	// Nothing was charged.
	if got := f.proc.CapturedMinor(hold.Payment.ProcessorRef); got != 0 {
		t.Fatalf("captured %d minor units, want 0", got)
	}
}

func TestHoldIdempotencyKeyReplay(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createTrip(t, "organizer-1")

	var b bookingResponse
	f.do(t, http.MethodPost, "/booking-requests", "guest-1", map[string]any{
		"organizer": "organizer-1", "inquirer": "guest-1", "trip": "trip-1",
	}, &b, nil)
	f.do(t, http.MethodPost, "/booking-requests/"+b.ID+"/status", "organizer-1",
		map[string]any{"status": "accepted"}, nil, nil)

	headers := map[string]string{"Idempotency-Key": "key-abc"}

	var first holdResponse
	rec := f.do(t, http.MethodPost, "/payments/holds", "guest-1",
		map[string]any{"trip": "trip-1"}, &first, headers)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first hold: %d %s", rec.Code, rec.Body.String())
	}

	var replay holdResponse
	rec = f.do(t, http.MethodPost, "/payments/holds", "guest-1",
		map[string]any{"trip": "trip-1"}, &replay, headers)
	if rec.Code != http.StatusCreated {
		t.Fatalf("replay: %d %s", rec.Code, rec.Body.String())
	}
	if replay.Payment.ProcessorRef != first.Payment.ProcessorRef {
		t.Fatalf("replay created a second hold: %q vs %q",
			replay.Payment.ProcessorRef, first.Payment.ProcessorRef)
	}
	if replay.ClientSecret != first.ClientSecret {
		t.Fatal("replay lost the stored client secret")
	}

	// The same key with a different payload is a caller bug.
	rec = f.do(t, http.MethodPost, "/payments/holds", "guest-1",
		map[string]any{"trip": "trip-other"}, nil, headers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("key reuse: got %d, want 409", rec.Code)
	}
	if eb := decodeError(t, rec); eb.Code != "IDEMPOTENCY_KEY_REUSE" {
		t.Fatalf("key reuse: got code %q", eb.Code)
	}
}

func TestPaymentByReferenceNotFound(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/payments/by-reference/pi_nope", "guest-1", nil, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/trips/nope", "guest-1", nil, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
	if eb := decodeError(t, rec); eb.RequestID == "" {
		t.Fatal("error envelope is missing the request id")
	}
}
