package query

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 100
	MinPageSize     = 1
	MaxPageSize     = 5000

	// DefaultRowCap bounds the legacy single-page mode.
	DefaultRowCap = 1000

	maxPage = math.MaxInt32
)

// Page is a bounded slice of a query's rows plus its page descriptor.
type Page struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	HasNext  bool     `json:"hasNext"`
}

// Paginate wraps sqlText as a subquery and fetches pageSize+1 rows at the
// page offset, so the extra row answers hasNext without a count query.
func Paginate(ctx context.Context, exec Executor, sqlText string, page, pageSize int) (Page, error) {
	inner := Sanitize(sqlText)
	if inner == "" {
		return Page{}, fmt.Errorf("sql is required")
	}
	page = ClampPage(page)
	pageSize = ClampPageSize(pageSize)
	offset := int64(page-1) * int64(pageSize)

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d OFFSET %d", inner, pageSize+1, offset)
	result, err := exec.Execute(ctx, wrapped)
	if err != nil {
		return Page{}, err
	}

	rows := result.Rows
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Page{
		Columns:  nonNilColumns(result.Columns),
		Rows:     nonNilRows(rows),
		Page:     page,
		PageSize: pageSize,
		HasNext:  hasNext,
	}, nil
}

// Capped returns at most limit rows with no offset and no hasNext signal.
func Capped(ctx context.Context, exec Executor, sqlText string, limit int) (Result, error) {
	inner := Sanitize(sqlText)
	if inner == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	if limit <= 0 {
		limit = DefaultRowCap
	}
	result, err := exec.Execute(ctx, fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", inner, limit))
	if err != nil {
		return Result{}, err
	}
	return normalizeResult(result), nil
}

// Uncapped runs the statement as given and returns every row it produces.
func Uncapped(ctx context.Context, exec Executor, sqlText string) (Result, error) {
	inner := Sanitize(sqlText)
	if inner == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	result, err := exec.Execute(ctx, inner)
	if err != nil {
		return Result{}, err
	}
	return normalizeResult(result), nil
}

// Sanitize trims surrounding whitespace and one trailing semicolon.
func Sanitize(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimSuffix(trimmed, ";")
	return strings.TrimSpace(trimmed)
}

func ClampPage(page int) int {
	if page < DefaultPage {
		return DefaultPage
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

func ClampPageSize(pageSize int) int {
	if pageSize < MinPageSize {
		return MinPageSize
	}
	if pageSize > MaxPageSize {
		return MaxPageSize
	}
	return pageSize
}

func normalizeResult(result Result) Result {
	return Result{Columns: nonNilColumns(result.Columns), Rows: nonNilRows(result.Rows)}
}

func nonNilColumns(columns []string) []string {
	if columns == nil {
		return []string{}
	}
	return columns
}

func nonNilRows(rows [][]any) [][]any {
	if rows == nil {
		return [][]any{}
	}
	return rows
}
