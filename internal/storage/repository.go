package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelinov/roadbook/internal/trip"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides database access for trips, participants, and stops.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const tripColumns = `id, title, slug, description, owner_id, start_date, end_date, created_at, updated_at`

func scanTrip(row pgx.Row) (*trip.Trip, error) {
	var t trip.Trip
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Slug,
		&t.Description,
		&t.OwnerID,
		&t.StartDate,
		&t.EndDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTrip inserts the trip and its owner participant in one transaction.
// The trip's ID, slug, and timestamps are assigned here.
func (r *Repository) CreateTrip(ctx context.Context, t trip.Trip) (*trip.Trip, error) {
	t.ID = uuid.NewString()
	t.Slug = trip.UniqueSlug(t.Title)
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := r.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertTrip = `
		INSERT INTO trips (id, title, slug, description, owner_id, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.Exec(ctx, insertTrip,
		t.ID, t.Title, t.Slug, t.Description, t.OwnerID, t.StartDate, t.EndDate, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting trip %s: %w", t.Slug, err)
	}

	const insertOwner = `
		INSERT INTO trip_participants (id, trip_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insertOwner,
		uuid.NewString(), t.ID, t.OwnerID, trip.RoleOwner, now,
	); err != nil {
		return nil, fmt.Errorf("inserting owner participant for trip %s: %w", t.Slug, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing trip %s: %w", t.Slug, err)
	}

	return &t, nil
}

// GetTripBySlug retrieves a trip by slug. Returns nil, nil when not found.
func (r *Repository) GetTripBySlug(ctx context.Context, slug string) (*trip.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE slug = $1`

	t, err := scanTrip(r.q.QueryRow(ctx, q, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", slug, err)
	}
	return t, nil
}

// ListTrips returns all trips, newest first.
func (r *Repository) ListTrips(ctx context.Context) ([]trip.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	var trips []trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}
		trips = append(trips, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trip rows: %w", err)
	}

	return trips, nil
}

// DeleteTrip removes a trip; participants and stops cascade via foreign keys.
// Reports whether a row was actually deleted.
func (r *Repository) DeleteTrip(ctx context.Context, slug string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM trips WHERE slug = $1`, slug)
	if err != nil {
		return false, fmt.Errorf("deleting trip %s: %w", slug, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListParticipants returns a trip's participants in join order.
func (r *Repository) ListParticipants(ctx context.Context, tripID string) ([]trip.Participant, error) {
	const q = `
		SELECT id, trip_id, user_id, role, joined_at
		FROM trip_participants
		WHERE trip_id = $1
		ORDER BY joined_at
	`

	rows, err := r.q.Query(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying participants for trip %s: %w", tripID, err)
	}
	defer rows.Close()

	var participants []trip.Participant
	for rows.Next() {
		var p trip.Participant
		if err := rows.Scan(&p.ID, &p.TripID, &p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning participant row: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participant rows: %w", err)
	}

	return participants, nil
}

// AddParticipant inserts a participant with the given role.
func (r *Repository) AddParticipant(ctx context.Context, tripID, userID string, role trip.Role) (*trip.Participant, error) {
	p := trip.Participant{
		ID:       uuid.NewString(),
		TripID:   tripID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}

	const q = `
		INSERT INTO trip_participants (id, trip_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.q.Exec(ctx, q, p.ID, p.TripID, p.UserID, p.Role, p.JoinedAt); err != nil {
		return nil, fmt.Errorf("inserting participant for trip %s: %w", tripID, err)
	}

	return &p, nil
}

// ListStops returns a trip's stops sorted by their order field.
func (r *Repository) ListStops(ctx context.Context, tripID string) ([]trip.Stop, error) {
	const q = `
		SELECT id, trip_id, title, description, lat, lng, category, stop_order, created_at, updated_at
		FROM trip_stops
		WHERE trip_id = $1
	`

	rows, err := r.q.Query(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stops for trip %s: %w", tripID, err)
	}
	defer rows.Close()

	var stops []trip.Stop
	for rows.Next() {
		var s trip.Stop
		if err := rows.Scan(
			&s.ID, &s.TripID, &s.Title, &s.Description,
			&s.Lat, &s.Lng, &s.Category, &s.Order,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning stop row: %w", err)
		}
		stops = append(stops, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stop rows: %w", err)
	}

	return trip.SortStops(stops), nil
}

// InsertStop persists a stop. The stop's ID and timestamps are assigned here;
// category limits and order assignment are the caller's concern.
func (r *Repository) InsertStop(ctx context.Context, s trip.Stop) (*trip.Stop, error) {
	s.ID = uuid.NewString()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	const q = `
		INSERT INTO trip_stops (id, trip_id, title, description, lat, lng, category, stop_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.q.Exec(ctx, q,
		s.ID, s.TripID, s.Title, s.Description, s.Lat, s.Lng, s.Category, s.Order, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting stop for trip %s: %w", s.TripID, err)
	}

	return &s, nil
}

// DeleteStop removes a single stop. Reports whether a row was deleted.
func (r *Repository) DeleteStop(ctx context.Context, tripID, stopID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM trip_stops WHERE trip_id = $1 AND id = $2`, tripID, stopID)
	if err != nil {
		return false, fmt.Errorf("deleting stop %s: %w", stopID, err)
	}
	return tag.RowsAffected() > 0, nil
}
