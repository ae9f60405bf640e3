package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groupventure/booking-api/internal/app/bookings"
	"github.com/groupventure/booking-api/internal/domain"
)

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	b, err := s.Bookings.Create(r.Context(), user, bookings.CreateInput{
		Organizer: domain.UserID(req.Organizer),
		Inquirer:  domain.UserID(req.Inquirer),
		Trip:      domain.TripID(req.Trip),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingFromRepo(b))
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.Bookings.Get(r.Context(), domain.BookingRequestID(chi.URLParam(r, "bookingID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingFromRepo(b))
}

// handleGetBookingByParties resolves the unique request for
// (organizer, inquirer, trip) passed as query parameters.
func (s *Server) handleGetBookingByParties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := s.Bookings.GetByParties(
		r.Context(),
		domain.UserID(q.Get("organizer")),
		domain.UserID(q.Get("inquirer")),
		domain.TripID(q.Get("trip")),
	)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingFromRepo(b))
}

func (s *Server) handleListBookingsByTrip(w http.ResponseWriter, r *http.Request) {
	bs, err := s.Bookings.ListByTrip(r.Context(), domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]bookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, bookingFromRepo(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookingRequests": out})
}

func (s *Server) handleTransitionBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req transitionBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	b, err := s.Bookings.Transition(
		r.Context(),
		user,
		domain.BookingRequestID(chi.URLParam(r, "bookingID")),
		domain.BookingStatus(req.Status),
	)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingFromRepo(b))
}
