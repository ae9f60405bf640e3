package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router. authMiddleware is either the JWT
// middleware or the dev shim.
func NewRouter(s *Server, authMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware)

	// Health endpoint for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.handleCreateTrip)
		r.Get("/{tripID}", s.handleGetTrip)
		r.Post("/{tripID}/start", s.handleStartTrip)
		r.Get("/{tripID}/authorization-fee", s.handleAuthorizationFee)
		r.Get("/{tripID}/booking-requests", s.handleListBookingsByTrip)
		r.Post("/{tripID}/capture", s.handleCaptureTrip)
	})

	r.Route("/booking-requests", func(r chi.Router) {
		r.Post("/", s.handleCreateBooking)
		r.Get("/", s.handleGetBookingByParties)
		r.Get("/{bookingID}", s.handleGetBooking)
		r.Post("/{bookingID}/status", s.handleTransitionBooking)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/holds", s.handleCreateHold)
		r.Post("/confirm", s.handleConfirmAuthorization)
		r.Get("/by-reference/{processorRef}", s.handleGetPaymentByRef)
	})

	return r
}
