package httpapi

import (
	"github.com/groupventure/booking-api/internal/app/bookings"
	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/app/trips"
	"github.com/groupventure/booking-api/internal/ports/out/idempotency"
)

// Server is the HTTP adapter. It decodes requests, resolves the caller from
// context, and delegates to the application services.
type Server struct {
	Trips    *trips.Service
	Bookings *bookings.Service
	Payments *payments.Service
	Idem     idempotency.Store
}

func NewServer(tripsSvc *trips.Service, bookingsSvc *bookings.Service, paymentsSvc *payments.Service, idem idempotency.Store) *Server {
	return &Server{
		Trips:    tripsSvc,
		Bookings: bookingsSvc,
		Payments: paymentsSvc,
		Idem:     idem,
	}
}
