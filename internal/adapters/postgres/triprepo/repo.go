package triprepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/groupventure/booking-api/internal/adapters/postgres"
	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trips (
			id, title, organizer,
			total_spots, available_spots, required_spots,
			price, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10)
	`,
		string(t.ID),
		t.Title,
		string(t.Organizer),
		t.TotalSpots,
		t.AvailableSpots,
		t.RequiredSpots,
		t.Price.String(),
		string(t.Status),
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET title = $2,
		    organizer = $3,
		    total_spots = $4,
		    available_spots = $5,
		    required_spots = $6,
		    price = $7::numeric,
		    status = $8,
		    updated_at = $9
		WHERE id = $1
	`,
		string(t.ID),
		t.Title,
		string(t.Organizer),
		t.TotalSpots,
		t.AvailableSpots,
		t.RequiredSpots,
		t.Price.String(),
		string(t.Status),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	return loadTrip(ctx, r.pool, id)
}

// ReserveSpot decrements availability with a conditional UPDATE so the
// database serializes competing reservations: only rows with spots left and a
// not-started status match, and concurrent transactions queue on the row
// lock. The losing caller gets a precise reason from a follow-up read.
func (r *Repo) ReserveSpot(ctx context.Context, id domain.TripID, userID domain.UserID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}

	var out triprepo.Trip
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips
			SET available_spots = available_spots - 1,
			    updated_at = now()
			WHERE id = $1
			  AND status = $2
			  AND available_spots > 0
		`, string(id), string(domain.TripStatusNotStarted))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var status string
			var available int
			err := tx.QueryRow(ctx, `
				SELECT status, available_spots FROM trips WHERE id = $1
			`, string(id)).Scan(&status, &available)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return triprepo.ErrNotFound
				}
				return err
			}
			if status == string(domain.TripStatusStarted) {
				return triprepo.ErrTripStarted
			}
			return triprepo.ErrCapacityExhausted
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_participants (trip_id, user_id) VALUES ($1, $2)
		`, string(id), string(userID)); err != nil {
			return err
		}

		out, err = loadTrip(ctx, tx, id)
		return err
	})
	if err != nil {
		return triprepo.Trip{}, err
	}
	return out, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadTrip(ctx context.Context, q querier, id domain.TripID) (triprepo.Trip, error) {
	row := q.QueryRow(ctx, `
		SELECT id, title, organizer,
		       total_spots, available_spots, required_spots,
		       price::text, status, created_at, updated_at
		FROM trips
		WHERE id = $1
	`, string(id))

	var (
		t        triprepo.Trip
		tripID   string
		org      string
		price    string
		status   string
		created  time.Time
		updated  time.Time
	)
	if err := row.Scan(
		&tripID, &t.Title, &org,
		&t.TotalSpots, &t.AvailableSpots, &t.RequiredSpots,
		&price, &status, &created, &updated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	t.ID = domain.TripID(tripID)
	t.Organizer = domain.UserID(org)
	t.Status = domain.TripStatus(status)
	t.CreatedAt = created.UTC()
	t.UpdatedAt = updated.UTC()

	d, err := decimal.NewFromString(price)
	if err != nil {
		return triprepo.Trip{}, err
	}
	t.Price = d

	rows, err := q.Query(ctx, `
		SELECT user_id FROM trip_participants WHERE trip_id = $1 ORDER BY seq ASC
	`, string(id))
	if err != nil {
		return triprepo.Trip{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return triprepo.Trip{}, err
		}
		t.Participants = append(t.Participants, domain.UserID(uid))
	}
	return t, rows.Err()
}
