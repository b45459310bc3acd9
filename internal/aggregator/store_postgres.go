package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"venuegraph/internal/source"
	"venuegraph/pkg/platform/tx"
)

// PostgresContextStore persists context rows as JSONB, one row per venue per
// source.
type PostgresContextStore struct {
	db *sql.DB
}

func NewPostgresContextStore(db *sql.DB) *PostgresContextStore {
	return &PostgresContextStore{db: db}
}

func (s *PostgresContextStore) Put(ctx context.Context, venueID uuid.UUID, entry ContextEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal context payload: %w", err)
	}
	q := tx.Resolve(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO venue_context (venue_id, source_type, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (venue_id, source_type) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		venueID, string(entry.SourceType), payload, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put venue context: %w", err)
	}
	return nil
}

func (s *PostgresContextStore) GetByVenue(ctx context.Context, venueID uuid.UUID) (map[source.Type]ContextEntry, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT source_type, payload, updated_at
		FROM venue_context WHERE venue_id = $1`, venueID)
	if err != nil {
		return nil, fmt.Errorf("get venue context: %w", err)
	}
	defer rows.Close()

	out := make(map[source.Type]ContextEntry)
	for rows.Next() {
		var entry ContextEntry
		var sourceType string
		var payload []byte
		if err := rows.Scan(&sourceType, &payload, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan venue context: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("decode context payload: %w", err)
		}
		entry.SourceType = source.Type(sourceType)
		out[entry.SourceType] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get venue context: %w", err)
	}
	return out, nil
}

func (s *PostgresContextStore) Delete(ctx context.Context, venueID uuid.UUID) error {
	q := tx.Resolve(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM venue_context WHERE venue_id = $1`, venueID); err != nil {
		return fmt.Errorf("delete venue context: %w", err)
	}
	return nil
}
