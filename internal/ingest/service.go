package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/duckcsv/duckcsv/internal/history"
	"github.com/duckcsv/duckcsv/internal/observability"
	"github.com/duckcsv/duckcsv/internal/storage"
)

const (
	defaultMaxBytes      int64 = 1 << 30
	defaultPresignExpiry       = 15 * time.Minute
	defaultContentType         = "text/csv"
)

// Loader replaces the logical table with the contents of a local file.
type Loader interface {
	Load(ctx context.Context, sourcePath string) (int64, error)
}

type Config struct {
	ScratchDir        string
	MaxBytes          int64
	PresignExpiry     time.Duration
	TableName         string
	DeleteAfterImport bool
}

type PresignRequest struct {
	Filename    string
	ContentType string
}

type PresignResult struct {
	UploadURL string
	Key       string
	ExpiresAt time.Time
}

// Service receives table sources either directly or through object storage
// and hands each one to the Loader via a scratch file that never outlives
// the call.
type Service struct {
	cfg      Config
	loader   Loader
	objects  storage.UploadSource
	recorder history.Recorder
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService wires the orchestrator. objects may be nil, which disables the
// presigned path; recorder may be nil, which disables history.
func NewService(cfg Config, loader Loader, objects storage.UploadSource, recorder history.Recorder, logger *slog.Logger) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "duckcsv-uploads")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = defaultPresignExpiry
	}
	if recorder == nil {
		recorder = history.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		cfg:      cfg,
		loader:   loader,
		objects:  objects,
		recorder: recorder,
		logger:   logger,
		clock:    time.Now,
	}, nil
}

func (s *Service) ObjectStorageEnabled() bool {
	return s.objects != nil
}

func (s *Service) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// ImportUpload persists body to a scratch file and loads it. Bodies larger
// than the configured cap fail with ErrPayloadTooLarge before the table is
// touched.
func (s *Service) ImportUpload(ctx context.Context, filename string, body io.Reader) (int64, error) {
	started := s.clock()
	name := strings.TrimSpace(filename)
	if name == "" {
		name = "upload.csv"
	}

	rowCount, size, err := s.importFrom(ctx, filename, func(dst io.Writer) (int64, error) {
		written, err := io.Copy(dst, io.LimitReader(body, s.cfg.MaxBytes+1))
		if err != nil {
			return written, fmt.Errorf("write scratch file: %w", err)
		}
		if written > s.cfg.MaxBytes {
			return written, ErrPayloadTooLarge
		}
		return written, nil
	})
	s.finish(ctx, history.SourceUpload, name, started, rowCount, size, err)
	return rowCount, err
}

// PresignUpload issues a time-limited write URL for a fresh object key.
func (s *Service) PresignUpload(ctx context.Context, req PresignRequest) (PresignResult, error) {
	if s.objects == nil {
		return PresignResult{}, ErrNotConfigured
	}
	now := s.clock()
	key := storage.BuildUploadName(now, req.Filename)
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	uploadURL, err := s.objects.PresignPut(ctx, key, contentType, s.cfg.PresignExpiry)
	observability.ObservePresign(err)
	if err != nil {
		return PresignResult{}, &StorageError{Op: "presign upload", Key: key, Err: err}
	}
	s.logger.InfoContext(ctx, "upload_presigned",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Duration("expiry", s.cfg.PresignExpiry),
	)
	return PresignResult{UploadURL: uploadURL, Key: key, ExpiresAt: now.Add(s.cfg.PresignExpiry)}, nil
}

// ImportObject streams a previously uploaded object into a scratch file and
// loads it.
func (s *Service) ImportObject(ctx context.Context, key string) (int64, error) {
	if s.objects == nil {
		return 0, ErrNotConfigured
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, ErrKeyRequired
	}
	started := s.clock()

	rowCount, size, err := s.importFrom(ctx, key, func(dst io.Writer) (int64, error) {
		reader, err := s.objects.Get(ctx, key)
		if err != nil {
			return 0, &StorageError{Op: "get object", Key: key, Err: err}
		}
		defer func() { _ = reader.Close() }()

		written, err := io.Copy(dst, reader)
		if err != nil {
			return written, &StorageError{Op: "read object", Key: key, Err: err}
		}
		return written, nil
	})
	if err == nil && s.cfg.DeleteAfterImport {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "object cleanup failed", slog.String("key", key), slog.Any("error", delErr))
		}
	}
	s.finish(ctx, history.SourceObject, key, started, rowCount, size, err)
	return rowCount, err
}

// importFrom fills a scratch file via fill, loads it and removes it on every
// exit path.
func (s *Service) importFrom(ctx context.Context, originalName string, fill func(io.Writer) (int64, error)) (int64, int64, error) {
	scratch, err := s.createScratch(originalName)
	if err != nil {
		return 0, 0, err
	}
	defer s.removeScratch(ctx, scratch.Name())

	size, fillErr := fill(scratch)
	closeErr := scratch.Close()
	if fillErr != nil {
		return 0, size, fillErr
	}
	if closeErr != nil {
		return 0, size, fmt.Errorf("close scratch file: %w", closeErr)
	}

	rowCount, err := s.loader.Load(ctx, scratch.Name())
	if err != nil {
		observability.ObserveTableDropped()
		return 0, size, err
	}
	return rowCount, size, nil
}

func (s *Service) createScratch(originalName string) (*os.File, error) {
	if err := os.MkdirAll(s.cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(s.cfg.ScratchDir, storage.BuildUploadName(s.clock(), originalName))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	return file, nil
}

func (s *Service) removeScratch(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WarnContext(ctx, "scratch file cleanup failed", slog.String("path", path), slog.Any("error", err))
	}
}

func (s *Service) finish(ctx context.Context, source history.Source, name string, started time.Time, rowCount, size int64, err error) {
	elapsed := s.clock().Sub(started)
	observability.ObserveImport(string(source), rowCount, elapsed, err)

	entry := history.Entry{
		Source:     source,
		Name:       name,
		TableName:  s.cfg.TableName,
		Status:     history.StatusSucceeded,
		RowCount:   rowCount,
		SizeBytes:  size,
		DurationMS: elapsed.Milliseconds(),
		StartedAt:  started,
	}
	if err != nil {
		entry.Status = history.StatusFailed
		entry.ErrorMessage = err.Error()
		s.logger.WarnContext(ctx, "import_failed",
			slog.String("source", string(source)),
			slog.String("name", name),
			slog.Int64("size_bytes", size),
			slog.Any("error", err),
		)
	} else {
		s.logger.InfoContext(ctx, "import_completed",
			slog.String("source", string(source)),
			slog.String("name", name),
			slog.Int64("row_count", rowCount),
			slog.Int64("size_bytes", size),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}

	if recErr := s.recorder.Record(ctx, entry); recErr != nil {
		s.logger.WarnContext(ctx, "import history record failed", slog.Any("error", recErr))
	}
}
