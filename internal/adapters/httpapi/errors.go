package httpapi

import (
	"errors"
	"net/http"

	"github.com/groupventure/booking-api/internal/app/bookings"
	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/app/trips"
)

// appErrorParts extracts the HTTP envelope fields from an application-layer
// error. Errors that carry no status are treated as internal and kept opaque.
func appErrorParts(err error) (status int, code, message string, details map[string]any) {
	var te *trips.Error
	if errors.As(err, &te) {
		return te.Status, te.Code, te.Message, te.Details
	}
	var be *bookings.Error
	if errors.As(err, &be) {
		return be.Status, be.Code, be.Message, be.Details
	}
	var pe *payments.Error
	if errors.As(err, &pe) {
		return pe.Status, pe.Code, pe.Message, pe.Details
	}
	return http.StatusInternalServerError, "INTERNAL", "internal error", nil
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := appErrorParts(err)
	writeError(w, r, status, code, message, details)
}
