package paymentrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/groupventure/booking-api/internal/adapters/postgres"
	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

// Repo is a Postgres implementation of paymentrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	id, sender, trip_id, processor_ref, processor_status,
	transaction_value::text, fee::text, booking_request, created_at, updated_at
`

func (r *Repo) Create(ctx context.Context, p paymentrepo.Payment) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (
			id, sender, trip_id, processor_ref, processor_status,
			transaction_value, fee, booking_request, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8,$9,$10)
	`,
		string(p.ID),
		string(p.Sender),
		string(p.Trip),
		p.ProcessorRef,
		string(p.ProcessorStatus),
		p.TransactionValue.String(),
		p.Fee.String(),
		bookingArg(p.BookingRequest),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return paymentrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, p paymentrepo.Payment) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET processor_status = $2,
		    transaction_value = $3::numeric,
		    fee = $4::numeric,
		    booking_request = $5,
		    updated_at = $6
		WHERE processor_ref = $1
	`,
		p.ProcessorRef,
		string(p.ProcessorStatus),
		p.TransactionValue.String(),
		p.Fee.String(),
		bookingArg(p.BookingRequest),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return paymentrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByProcessorRef(ctx context.Context, ref string) (paymentrepo.Payment, error) {
	if r.pool == nil {
		return paymentrepo.Payment{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+` FROM payments WHERE processor_ref = $1
	`, ref)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return paymentrepo.Payment{}, paymentrepo.ErrNotFound
	}
	return p, err
}

func (r *Repo) FindBySenderAndTrip(ctx context.Context, sender domain.UserID, trip domain.TripID) (paymentrepo.Payment, error) {
	if r.pool == nil {
		return paymentrepo.Payment{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+` FROM payments
		WHERE sender = $1 AND trip_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, string(sender), string(trip))
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return paymentrepo.Payment{}, paymentrepo.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListStaleOpen(ctx context.Context, before time.Time) ([]paymentrepo.Payment, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM payments
		WHERE processor_status = ANY($1)
		  AND created_at < $2
		ORDER BY created_at ASC
	`, preAuthorizationStatuses(), before.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]paymentrepo.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func preAuthorizationStatuses() []string {
	return []string{
		string(processor.StatusRequiresPaymentMethod),
		string(processor.StatusRequiresConfirmation),
		string(processor.StatusRequiresAction),
		string(processor.StatusProcessing),
	}
}

func bookingArg(b *domain.BookingRequestID) *string {
	if b == nil {
		return nil
	}
	v := string(*b)
	return &v
}

func scanPayment(row pgx.Row) (paymentrepo.Payment, error) {
	var (
		p       paymentrepo.Payment
		id      string
		sender  string
		trip    string
		status  string
		value   string
		fee     string
		booking *string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &sender, &trip, &p.ProcessorRef, &status, &value, &fee, &booking, &created, &updated); err != nil {
		return paymentrepo.Payment{}, err
	}
	p.ID = domain.PaymentID(id)
	p.Sender = domain.UserID(sender)
	p.Trip = domain.TripID(trip)
	p.ProcessorStatus = processor.Status(status)
	if booking != nil {
		v := domain.BookingRequestID(*booking)
		p.BookingRequest = &v
	}

	tv, err := decimal.NewFromString(value)
	if err != nil {
		return paymentrepo.Payment{}, err
	}
	fv, err := decimal.NewFromString(fee)
	if err != nil {
		return paymentrepo.Payment{}, err
	}
	p.TransactionValue = tv
	p.Fee = fv
	p.CreatedAt = created.UTC()
	p.UpdatedAt = updated.UTC()
	return p, nil
}
