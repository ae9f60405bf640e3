package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groupventure/booking-api/internal/app/trips"
	"github.com/groupventure/booking-api/internal/domain"
)

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}

	t, err := s.Trips.CreateTrip(r.Context(), user, trips.CreateTripInput{
		Title:         req.Title,
		TotalSpots:    req.TotalSpots,
		RequiredSpots: req.RequiredSpots,
		Price:         req.Price,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripFromRepo(t))
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.GetTrip(r.Context(), domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromRepo(t))
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing user", nil)
		return
	}

	t, err := s.Trips.StartTrip(r.Context(), user, domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromRepo(t))
}
