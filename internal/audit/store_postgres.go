package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"venuegraph/pkg/platform/tx"
)

// PostgresStore persists match events in the match_audit table, so
// resolution decisions survive restarts and can be reviewed per venue.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO match_audit (venue_id, source_name, record_name, match_type, confidence, created, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.VenueID, e.SourceName, e.RecordName, e.MatchType, e.Confidence, e.Created, e.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Event, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT venue_id, source_name, record_name, match_type, confidence, created, occurred_at
		FROM match_audit
		WHERE venue_id = $1
		ORDER BY occurred_at, id`, venueID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.VenueID, &e.SourceName, &e.RecordName,
			&e.MatchType, &e.Confidence, &e.Created, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}
