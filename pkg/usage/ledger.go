// Package usage keeps a ledger of outbound model calls.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/sous/pkg/models"
)

// Ledger records and queries outbound AI calls.
type Ledger interface {
	// Record stores one call.
	Record(ctx context.Context, rec models.UsageRecord) error
	// TotalByFeature returns tokens spent by a feature since a given time.
	// An empty feature sums across all features.
	TotalByFeature(ctx context.Context, feature models.Feature, since time.Time) (int64, error)
	// Recent returns the newest records first, at most limit.
	Recent(ctx context.Context, limit int) ([]models.UsageRecord, error)
	// Summary aggregates calls by feature and outcome.
	Summary(ctx context.Context) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteLedger implements Ledger with a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

const createTable = `
CREATE TABLE IF NOT EXISTS ai_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL DEFAULT '',
	feature TEXT NOT NULL,
	identifier TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_calls_feature_time ON ai_calls(feature, created_at);
`

// New creates a SQLiteLedger and runs auto-migration.
func New(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Record stores a usage record.
func (l *SQLiteLedger) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ai_calls (request_id, feature, identifier, model, outcome, prompt_tokens, completion_tokens, total_tokens, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(rec.Feature), rec.Identifier, rec.Model, string(rec.Outcome),
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.LatencyMs, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TotalByFeature returns total tokens used by a feature since a given time.
func (l *SQLiteLedger) TotalByFeature(ctx context.Context, feature models.Feature, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(total_tokens), 0) FROM ai_calls WHERE created_at >= ?`
	args := []any{since.UnixNano()}
	if feature != "" {
		query += ` AND feature = ?`
		args = append(args, string(feature))
	}

	var total int64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// Recent returns the newest records first.
func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, request_id, feature, identifier, model, outcome, prompt_tokens, completion_tokens, total_tokens, latency_ms, created_at
		 FROM ai_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var feature, outcome string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.RequestID, &feature, &r.Identifier, &r.Model, &outcome,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.Feature = models.Feature(feature)
		r.Outcome = models.CallOutcome(outcome)
		r.CreatedAt = time.Unix(0, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary returns aggregated usage grouped by feature and outcome.
func (l *SQLiteLedger) Summary(ctx context.Context) ([]models.UsageSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT feature, outcome, COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(AVG(latency_ms), 0)
		 FROM ai_calls GROUP BY feature, outcome ORDER BY feature, outcome`,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		var feature, outcome string
		var avg float64
		if err := rows.Scan(&feature, &outcome, &s.RequestCount, &s.TotalTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Feature = models.Feature(feature)
		s.Outcome = models.CallOutcome(outcome)
		s.AvgLatencyMs = int64(avg)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
