package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/duckcsv/duckcsv/internal/history"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var _ history.Store = (*Repository)(nil)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, entry history.Entry) error {
	query := `
INSERT INTO import_history (source, name, table_name, status, row_count, size_bytes, error_message, duration_ms, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var rowCount sql.NullInt64
	if entry.Status == history.StatusSucceeded {
		rowCount = sql.NullInt64{Int64: entry.RowCount, Valid: true}
	}
	var errorMessage sql.NullString
	if msg := strings.TrimSpace(entry.ErrorMessage); msg != "" {
		errorMessage = sql.NullString{String: msg, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		string(entry.Source),
		entry.Name,
		entry.TableName,
		string(entry.Status),
		rowCount,
		entry.SizeBytes,
		errorMessage,
		entry.DurationMS,
		entry.StartedAt.UTC(),
	); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// List returns the most recent imports first. limit is clamped to
// [1, maxListLimit]; zero or less selects the default.
func (r *Repository) List(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT import_id, source, name, table_name, status, row_count, size_bytes, error_message, duration_ms, started_at, recorded_at
FROM import_history
ORDER BY started_at DESC, import_id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		var (
			entry        history.Entry
			source       string
			status       string
			rowCount     sql.NullInt64
			errorMessage sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&source,
			&entry.Name,
			&entry.TableName,
			&status,
			&rowCount,
			&entry.SizeBytes,
			&errorMessage,
			&entry.DurationMS,
			&entry.StartedAt,
			&entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import row: %w", err)
		}
		entry.Source = history.Source(source)
		entry.Status = history.Status(status)
		entry.RowCount = rowCount.Int64
		entry.ErrorMessage = errorMessage.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import rows: %w", err)
	}
	return entries, nil
}
