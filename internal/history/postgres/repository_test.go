package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/duckcsv/duckcsv/internal/history"
)

const insertSQL = `
INSERT INTO import_history (source, name, table_name, status, row_count, size_bytes, error_message, duration_ms, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func TestRecordSucceededImport(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("upload", "people.csv", "data", "succeeded", sql.NullInt64{Int64: 3, Valid: true}, int64(27), sql.NullString{}, int64(12), started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), history.Entry{
		Source:     history.SourceUpload,
		Name:       "people.csv",
		TableName:  "data",
		Status:     history.StatusSucceeded,
		RowCount:   3,
		SizeBytes:  27,
		DurationMS: 12,
		StartedAt:  started,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestRecordFailedImportStoresNullRowCount(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("object", "uploads/x.csv", "data", "failed", sql.NullInt64{}, int64(0), sql.NullString{String: "object not found", Valid: true}, int64(4), started).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := repo.Record(context.Background(), history.Entry{
		Source:       history.SourceObject,
		Name:         "uploads/x.csv",
		TableName:    "data",
		Status:       history.StatusFailed,
		RowCount:     99,
		ErrorMessage: " object not found ",
		DurationMS:   4,
		StartedAt:    started,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestRecordWrapsExecError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(errors.New("connection refused"))

	err := repo.Record(context.Background(), history.Entry{Source: history.SourceUpload, Status: history.StatusFailed})
	if err == nil || !strings.Contains(err.Error(), "record import: connection refused") {
		t.Fatalf("Record() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestListReturnsNewestFirstAndClampsLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	recorded := started.Add(time.Second)

	columns := []string{"import_id", "source", "name", "table_name", "status", "row_count", "size_bytes", "error_message", "duration_ms", "started_at", "recorded_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM import_history
ORDER BY started_at DESC, import_id DESC
LIMIT $1`)).
		WithArgs(maxListLimit).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), "object", "uploads/b.csv", "data", "failed", nil, int64(0), "boom", int64(7), started, recorded).
			AddRow(int64(1), "upload", "a.csv", "data", "succeeded", int64(10), int64(100), nil, int64(3), started, recorded))

	entries, err := repo.List(context.Background(), 10000)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].Status != history.StatusFailed || entries[0].ErrorMessage != "boom" || entries[0].RowCount != 0 {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Source != history.SourceUpload || entries[1].RowCount != 10 {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	assertSQLMock(t, mock)
}

func TestListDefaultsLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM import_history`)).
		WithArgs(defaultListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"import_id"}))

	entries, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("entries = %#v, want empty slice", entries)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
