package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/idempotency"
)

func (s *Server) handleAuthorizationFee(w http.ResponseWriter, r *http.Request) {
	q, err := s.Payments.AuthorizationFee(r.Context(), domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feeQuoteResponse{OrderAmount: q.OrderAmount, Fee: q.Fee})
}

// handleCreateHold opens a processor hold for the caller.
//
// Idempotency-Key handling: a replayed key with the same body returns the
// stored response; the same key with a different body is rejected. The key is
// also forwarded to the processor so the hold itself is deduplicated.
func (s *Server) handleCreateHold(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req createHoldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	bodyHash := hashHoldBody(req)
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(idemKey),
		Caller:   user,
		Method:   http.MethodPost,
		Route:    "/payments/holds",
		BodyHash: "",
	}

	if s.Idem != nil && idemKey != "" {
		if meta, ok, err := s.Idem.Get(r.Context(), metaFP); err != nil {
			writeAppError(w, r, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(r.Context(), metaFP, idempotency.Record{
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP := metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(r.Context(), respFP); err != nil {
			writeAppError(w, r, err)
			return
		} else if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	hc, err := s.Payments.RequestHold(r.Context(), user, domain.TripID(req.Trip), idemKey)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := holdResponse{Payment: paymentFromRepo(hc.Payment), ClientSecret: hc.ClientSecret}

	if s.Idem != nil && idemKey != "" {
		respFP := metaFP
		respFP.BodyHash = bodyHash
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleConfirmAuthorization(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	p, err := s.Payments.ConfirmAuthorization(r.Context(), req.ProcessorRef, domain.BookingRequestID(req.BookingRequest))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentFromRepo(p))
}

func (s *Server) handleGetPaymentByRef(w http.ResponseWriter, r *http.Request) {
	p, err := s.Payments.GetByProcessorRef(r.Context(), chi.URLParam(r, "processorRef"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentFromRepo(p))
}

func (s *Server) handleCaptureTrip(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req captureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	participants := make([]domain.UserID, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, domain.UserID(p))
	}

	report, err := s.Payments.CaptureTrip(r.Context(), user, domain.TripID(chi.URLParam(r, "tripID")), participants)
	if err != nil {
		// The report is meaningful even on abort; callers need the
		// per-participant outcomes to see who blocked the run.
		status, code, message, details := appErrorParts(err)
		writeJSON(w, status, map[string]any{
			"error": errorBody{
				Code:      code,
				Message:   message,
				Details:   details,
				RequestID: middleware.GetReqID(r.Context()),
			},
			"report": captureReportFromApp(report),
		})
		return
	}
	writeJSON(w, http.StatusOK, captureReportFromApp(report))
}

func hashHoldBody(req createHoldRequest) string {
	sum := sha256.Sum256([]byte(req.Trip))
	return hex.EncodeToString(sum[:])
}
