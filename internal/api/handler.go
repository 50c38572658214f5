package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duckcsv/duckcsv/internal/config"
	"github.com/duckcsv/duckcsv/internal/history"
	"github.com/duckcsv/duckcsv/internal/ingest"
	"github.com/duckcsv/duckcsv/internal/observability"
	"github.com/duckcsv/duckcsv/internal/query"
)

type ReadinessCheck func(ctx context.Context) error

// TableStore is the single logical table as seen by request handlers.
type TableStore interface {
	query.Executor
	HasTable(ctx context.Context) bool
}

type Ingestor interface {
	ImportUpload(ctx context.Context, filename string, body io.Reader) (int64, error)
	PresignUpload(ctx context.Context, req ingest.PresignRequest) (ingest.PresignResult, error)
	ImportObject(ctx context.Context, key string) (int64, error)
	ObjectStorageEnabled() bool
	MaxBytes() int64
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Store             TableStore
	Ingest            Ingestor
	// History is optional; without it the history route answers 501.
	History history.Lister
	UI      http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		hasTable := false
		if deps.Store != nil {
			hasTable = deps.Store.HasTable(r.Context())
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "duckdb": "ok", "hasTable": hasTable})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "service": cfg.Service.Name})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "service": cfg.Service.Name})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		handleUpload(deps, w, r)
	})
	mux.HandleFunc("POST /upload/presign", func(w http.ResponseWriter, r *http.Request) {
		handlePresign(deps, w, r)
	})
	mux.HandleFunc("POST /upload/import", func(w http.ResponseWriter, r *http.Request) {
		handleImport(deps, w, r)
	})
	mux.HandleFunc("GET /upload/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// PingCheck adapts a ping function such as the database's into a readiness
// check.
func PingCheck(ping func(ctx context.Context) error) ReadinessCheck {
	if ping == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
