package paymentrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

// Payment is the local mirror of a processor-side transaction. This store
// never calls the processor itself; it only records processor-reported facts
// supplied by the orchestrators.
type Payment struct {
	ID domain.PaymentID

	Sender domain.UserID
	Trip   domain.TripID

	// ProcessorRef is the processor's hold/transaction identifier. It is
	// unique across all payments and immutable once set.
	ProcessorRef string

	// ProcessorStatus mirrors the processor-reported state as of the last
	// orchestrator interaction.
	ProcessorStatus processor.Status

	// TransactionValue is the amount authorized, later overwritten with the
	// amount captured. Fee is the platform fee charged alongside it.
	TransactionValue decimal.Decimal
	Fee              decimal.Decimal

	// BookingRequest is filled in when the hold is confirmed against a
	// booking.
	BookingRequest *domain.BookingRequestID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted payment records.
type Repository interface {
	// Create inserts a new record. A duplicate ProcessorRef fails with
	// ErrAlreadyExists.
	Create(ctx context.Context, p Payment) error

	// Save overwrites the record identified by p.ProcessorRef.
	// ErrNotFound is returned when no record carries that reference.
	Save(ctx context.Context, p Payment) error

	GetByProcessorRef(ctx context.Context, ref string) (Payment, error)

	// FindBySenderAndTrip looks up the payment a user opened for a trip.
	FindBySenderAndTrip(ctx context.Context, sender domain.UserID, trip domain.TripID) (Payment, error)

	// ListStaleOpen returns records still in a pre-authorization processor
	// status created before the cutoff, for the expiry sweep.
	ListStaleOpen(ctx context.Context, before time.Time) ([]Payment, error)
}
