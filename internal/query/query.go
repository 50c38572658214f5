package query

import (
	"context"
	"errors"
	"fmt"
)

// Result is one executed statement: column names plus positionally aligned,
// JSON-safe rows. Columns is empty whenever Rows is empty.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Executor runs SQL text against the single table store.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}

// EngineError carries the embedded engine's failure message for one step.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsEngineError reports whether err originated in the embedded engine.
func IsEngineError(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr)
}

// EmptyResult is what a statement producing zero rows returns.
func EmptyResult() Result {
	return Result{Columns: []string{}, Rows: [][]any{}}
}

func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}
