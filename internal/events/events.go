package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one recorded analytics row.
type Event struct {
	ID        int64
	TestID    string
	VariantID string
	EventType string
	VisitorID string
	Metadata  map[string]string
	CreatedAt time.Time
}

// VariantStats aggregates distinct-visitor exposure and conversions for one
// variant. Exposure counts both first assignments and repeat views.
type VariantStats struct {
	VariantID   string
	Views       int
	Conversions int
}

// Store is the embedded analytics sink: an append-only SQLite event log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    metadata TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_events_test ON events(test_id);
CREATE INDEX IF NOT EXISTS idx_events_test_type ON events(test_id, event_type);
CREATE INDEX IF NOT EXISTS idx_events_visitor ON events(test_id, visitor_id, event_type);
`

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one event row.
func (s *Store) Record(ctx context.Context, testID, variantID, eventType, visitorID string, metadata map[string]string) error {
	var metaJSON []byte
	if len(metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (test_id, variant_id, event_type, visitor_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		testID, variantID, eventType, visitorID, nullableString(metaJSON), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// VariantStats returns distinct-visitor views and conversions per variant.
func (s *Store) VariantStats(ctx context.Context, testID string) ([]VariantStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			variant_id,
			COUNT(DISTINCT CASE WHEN event_type IN ('assigned', 'viewed') THEN visitor_id END) as views,
			COUNT(DISTINCT CASE WHEN event_type = 'conversion' THEN visitor_id END) as conversions
		FROM events
		WHERE test_id = ?
		GROUP BY variant_id
		ORDER BY variant_id
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}
	defer rows.Close()

	var stats []VariantStats
	for rows.Next() {
		var st VariantStats
		if err := rows.Scan(&st.VariantID, &st.Views, &st.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// Events returns the raw rows for a test, newest first.
func (s *Store) Events(ctx context.Context, testID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, variant_id, event_type, visitor_id, metadata, created_at
		 FROM events WHERE test_id = ? ORDER BY created_at DESC, id DESC`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var metaJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TestID, &e.VariantID, &e.EventType, &e.VisitorID, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}

	return events, rows.Err()
}

// Count returns the total number of recorded events, for health reporting.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// SinkFor returns an analytics sink that records events for one visitor.
// Record failures are dropped; the sink contract is best-effort.
func (s *Store) SinkFor(visitorID string) func(eventName string, payload map[string]string) {
	return func(eventName string, payload map[string]string) {
		metadata := make(map[string]string, len(payload))
		for k, v := range payload {
			if k == "test_id" || k == "variant_id" {
				continue
			}
			metadata[k] = v
		}
		_ = s.Record(context.Background(), payload["test_id"], payload["variant_id"], eventName, visitorID, metadata)
	}
}

// DB returns the underlying database connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
