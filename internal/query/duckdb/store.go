package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckcsv/duckcsv/internal/query"
)

const defaultTableName = "data"

type Config struct {
	// Path of the database file; empty opens an in-memory database.
	Path      string
	TableName string
}

// Store owns the embedded database and the one logical table it serves.
// Statement ordering is left to the engine; there is no lock between a
// reload and concurrent readers.
type Store struct {
	db        *sql.DB
	tableName string
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	tableName := strings.TrimSpace(cfg.TableName)
	if tableName == "" {
		tableName = defaultTableName
	}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &Store{db: db, tableName: tableName}, nil
}

func (s *Store) TableName() string {
	return s.tableName
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

// Execute runs sqlText and returns its rows normalized to JSON-safe values.
// Column names are only reported when at least one row comes back.
func (s *Store) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, &query.EngineError{Op: "execute", Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, &query.EngineError{Op: "read columns", Err: err}
	}
	typeNames := make([]string, len(columns))
	if columnTypes, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range columnTypes {
			if i < len(typeNames) {
				typeNames[i] = columnType.DatabaseTypeName()
			}
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, &query.EngineError{Op: "scan row", Err: err}
		}
		resultRows = append(resultRows, NormalizeRow(values, typeNames))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, &query.EngineError{Op: "iterate rows", Err: err}
	}

	if len(resultRows) == 0 {
		return query.EmptyResult(), nil
	}
	return query.Result{Columns: columns, Rows: resultRows}, nil
}

// Load drops the logical table, recreates it from the file at sourcePath and
// returns the new row count. A failed create leaves no table behind.
func (s *Store) Load(ctx context.Context, sourcePath string) (int64, error) {
	table := quoteIdent(s.tableName)

	if _, err := s.Execute(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return 0, withOp(err, "drop table")
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", table, sourceExpr(sourcePath))
	if _, err := s.Execute(ctx, createSQL); err != nil {
		return 0, withOp(err, "create table")
	}

	result, err := s.Execute(ctx, "SELECT COUNT(*) AS row_count FROM "+table)
	if err != nil {
		return 0, withOp(err, "count rows")
	}
	return rowCount(result)
}

// HasTable reports whether the logical table exists as a base table in the
// current schema. Views and same-named tables in other schemas do not count.
// Lookup failures read as absent.
func (s *Store) HasTable(ctx context.Context) bool {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name = ?
		  AND table_schema = current_schema()
		  AND table_catalog = current_database()
		  AND table_type = 'BASE TABLE'`,
		s.tableName,
	).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

func sourceExpr(sourcePath string) string {
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet(%s)", quoteString(sourcePath))
	default:
		return fmt.Sprintf("read_csv_auto(%s, header = true)", quoteString(sourcePath))
	}
}

func rowCount(result query.Result) (int64, error) {
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, &query.EngineError{Op: "count rows", Err: errors.New("count query returned no rows")}
	}
	switch typed := result.Rows[0][0].(type) {
	case int64:
		return typed, nil
	case int32:
		return int64(typed), nil
	case int:
		return int64(typed), nil
	case uint64:
		return int64(typed), nil
	case float64:
		return int64(typed), nil
	case string:
		count, err := strconv.ParseInt(typed, 10, 64)
		if err != nil {
			return 0, &query.EngineError{Op: "count rows", Err: err}
		}
		return count, nil
	default:
		return 0, &query.EngineError{Op: "count rows", Err: fmt.Errorf("unexpected count type %T", typed)}
	}
}

func withOp(err error, op string) error {
	var engineErr *query.EngineError
	if errors.As(err, &engineErr) {
		return &query.EngineError{Op: op, Err: engineErr.Err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
