package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"venuegraph/pkg/geo"
	"venuegraph/pkg/platform/tx"
)

// PostgresVenueStore persists venues in PostgreSQL. All methods honor a
// transaction carried in the context.
type PostgresVenueStore struct {
	db *sql.DB
}

func NewPostgresVenueStore(db *sql.DB) *PostgresVenueStore {
	return &PostgresVenueStore{db: db}
}

const venueColumns = `id, name, category, lat, lng, address, phone, website, first_source, sources, created_at, updated_at`

func (s *PostgresVenueStore) Create(ctx context.Context, v Venue) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO venues (`+venueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.Name, nullStr(v.Category), v.Lat, v.Lng, nullStr(v.Address),
		nullStr(v.Phone), nullStr(v.Website), v.FirstSource,
		pq.Array(v.Sources), v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

func (s *PostgresVenueStore) Get(ctx context.Context, id uuid.UUID) (Venue, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Venue{}, ErrNotFound
		}
		return Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *PostgresVenueStore) Update(ctx context.Context, v Venue) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE venues
		SET name = $2, category = $3, lat = $4, lng = $5, address = $6,
		    phone = $7, website = $8, sources = $9, updated_at = $10
		WHERE id = $1`,
		v.ID, v.Name, nullStr(v.Category), v.Lat, v.Lng, nullStr(v.Address),
		nullStr(v.Phone), nullStr(v.Website), pq.Array(v.Sources), v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresVenueStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresVenueStore) List(ctx context.Context) ([]Venue, error) {
	return s.queryVenues(ctx, `SELECT `+venueColumns+` FROM venues ORDER BY created_at, id`)
}

func (s *PostgresVenueStore) ListInBounds(ctx context.Context, b geo.Bounds) ([]Venue, error) {
	return s.queryVenues(ctx, `
		SELECT `+venueColumns+` FROM venues
		WHERE lat IS NOT NULL AND lng IS NOT NULL
		  AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
		ORDER BY created_at, id`,
		b.South, b.North, b.West, b.East)
}

func (s *PostgresVenueStore) queryVenues(ctx context.Context, query string, args ...any) ([]Venue, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var out []Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(r rowScanner) (Venue, error) {
	var v Venue
	var category, address, phone, website sql.NullString
	err := r.Scan(&v.ID, &v.Name, &category, &v.Lat, &v.Lng, &address,
		&phone, &website, &v.FirstSource, pq.Array(&v.Sources),
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Venue{}, err
	}
	v.Category = category.String
	v.Address = address.String
	v.Phone = phone.String
	v.Website = website.String
	return v, nil
}

// PostgresEventStore persists events in PostgreSQL.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

const eventColumns = `id, name, category, venue_id, venue_name, lat, lng, start_time, end_time, event_score, source_name, created_at, updated_at`

const eventOrder = ` ORDER BY start_time ASC NULLS LAST, event_score DESC NULLS LAST`

func (s *PostgresEventStore) Upsert(ctx context.Context, e Event) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
		    venue_id = EXCLUDED.venue_id, venue_name = EXCLUDED.venue_name,
		    lat = EXCLUDED.lat, lng = EXCLUDED.lng,
		    start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		    event_score = EXCLUDED.event_score, source_name = EXCLUDED.source_name,
		    updated_at = EXCLUDED.updated_at`,
		e.ID, e.Name, nullStr(e.Category), e.VenueID, nullStr(e.VenueName),
		e.Lat, e.Lng, e.StartTime, e.EndTime, e.EventScore,
		nullStr(e.SourceName), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *PostgresEventStore) List(ctx context.Context) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events`+eventOrder)
}

func (s *PostgresEventStore) ListUnlinked(ctx context.Context) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE venue_id IS NULL`+eventOrder)
}

func (s *PostgresEventStore) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE venue_id = $1`+eventOrder, venueID)
}

func (s *PostgresEventStore) ListInWindow(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE start_time IS NULL OR (start_time >= $1 AND start_time < $2)`+eventOrder, start, end)
}

func (s *PostgresEventStore) ReassignVenue(ctx context.Context, from, to uuid.UUID) (int, error) {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`UPDATE events SET venue_id = $2, updated_at = now() WHERE venue_id = $1`, from, to)
	if err != nil {
		return 0, fmt.Errorf("reassign events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign events: %w", err)
	}
	return int(n), nil
}

func (s *PostgresEventStore) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func scanEvent(r rowScanner) (Event, error) {
	var e Event
	var category, venueName, sourceName sql.NullString
	err := r.Scan(&e.ID, &e.Name, &category, &e.VenueID, &venueName,
		&e.Lat, &e.Lng, &e.StartTime, &e.EndTime, &e.EventScore,
		&sourceName, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Event{}, err
	}
	e.Category = category.String
	e.VenueName = venueName.String
	e.SourceName = sourceName.String
	return e, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
