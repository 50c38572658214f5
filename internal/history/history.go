package history

import (
	"context"
	"time"
)

type Source string

const (
	SourceUpload Source = "upload"
	SourceObject Source = "object"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one import attempt. RowCount is only meaningful when Status is
// StatusSucceeded.
type Entry struct {
	ID           int64     `json:"id"`
	Source       Source    `json:"source"`
	Name         string    `json:"name"`
	TableName    string    `json:"tableName"`
	Status       Status    `json:"status"`
	RowCount     int64     `json:"rowCount"`
	SizeBytes    int64     `json:"sizeBytes"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DurationMS   int64     `json:"durationMs"`
	StartedAt    time.Time `json:"startedAt"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Lister interface {
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Store records and lists imports.
type Store interface {
	Recorder
	Lister
}

// Nop discards entries. It is used when no history database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
