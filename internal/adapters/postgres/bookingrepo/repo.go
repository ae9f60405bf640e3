package bookingrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/groupventure/booking-api/internal/adapters/postgres"
	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
)

// Repo is a Postgres implementation of bookingrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	id, organizer, inquirer, trip_id, status, payment_id, version, created_at, updated_at
`

func (r *Repo) Create(ctx context.Context, b bookingrepo.BookingRequest) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO booking_requests (
			id, organizer, inquirer, trip_id, status, payment_id, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,1,$7,$8)
	`,
		string(b.ID),
		string(b.Organizer),
		string(b.Inquirer),
		string(b.Trip),
		string(b.Status),
		paymentArg(b.Payment),
		b.CreatedAt.UTC(),
		b.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return bookingrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save performs the optimistic write: the UPDATE only matches when the stored
// version equals the caller's, and bumps it in the same statement. The
// logical key columns are deliberately absent from the SET list.
func (r *Repo) Save(ctx context.Context, b bookingrepo.BookingRequest) (bookingrepo.BookingRequest, error) {
	if r.pool == nil {
		return bookingrepo.BookingRequest{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE booking_requests
		SET status = $3,
		    payment_id = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $1 AND version = $2
		RETURNING `+selectColumns,
		string(b.ID),
		b.Version,
		string(b.Status),
		paymentArg(b.Payment),
		b.UpdatedAt.UTC(),
	)
	saved, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from a lost race.
			var exists bool
			if qerr := r.pool.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM booking_requests WHERE id = $1)
			`, string(b.ID)).Scan(&exists); qerr != nil {
				return bookingrepo.BookingRequest{}, qerr
			}
			if !exists {
				return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
			}
			return bookingrepo.BookingRequest{}, bookingrepo.ErrVersionConflict
		}
		return bookingrepo.BookingRequest{}, err
	}
	return saved, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.BookingRequestID) (bookingrepo.BookingRequest, error) {
	if r.pool == nil {
		return bookingrepo.BookingRequest{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+` FROM booking_requests WHERE id = $1
	`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	return b, err
}

func (r *Repo) GetByParties(ctx context.Context, organizer, inquirer domain.UserID, trip domain.TripID) (bookingrepo.BookingRequest, error) {
	if r.pool == nil {
		return bookingrepo.BookingRequest{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+` FROM booking_requests
		WHERE organizer = $1 AND inquirer = $2 AND trip_id = $3
	`, string(organizer), string(inquirer), string(trip))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	return b, err
}

func (r *Repo) FindByInquirerAndTrip(ctx context.Context, inquirer domain.UserID, trip domain.TripID) (bookingrepo.BookingRequest, error) {
	if r.pool == nil {
		return bookingrepo.BookingRequest{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+` FROM booking_requests
		WHERE inquirer = $1 AND trip_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, string(inquirer), string(trip))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookingrepo.BookingRequest{}, bookingrepo.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]bookingrepo.BookingRequest, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM booking_requests
		WHERE trip_id = $1
		ORDER BY created_at ASC, id ASC
	`, string(trip))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]bookingrepo.BookingRequest, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func paymentArg(p *domain.PaymentID) *string {
	if p == nil {
		return nil
	}
	v := string(*p)
	return &v
}

func scanBooking(row pgx.Row) (bookingrepo.BookingRequest, error) {
	var (
		b       bookingrepo.BookingRequest
		id      string
		org     string
		inq     string
		trip    string
		status  string
		payment *string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &org, &inq, &trip, &status, &payment, &b.Version, &created, &updated); err != nil {
		return bookingrepo.BookingRequest{}, err
	}
	b.ID = domain.BookingRequestID(id)
	b.Organizer = domain.UserID(org)
	b.Inquirer = domain.UserID(inq)
	b.Trip = domain.TripID(trip)
	b.Status = domain.BookingStatus(status)
	if payment != nil {
		v := domain.PaymentID(*payment)
		b.Payment = &v
	}
	b.CreatedAt = created.UTC()
	b.UpdatedAt = updated.UTC()
	return b, nil
}
