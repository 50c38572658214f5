package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/duckcsv/duckcsv/internal/observability"
	"github.com/duckcsv/duckcsv/internal/query"
)

const (
	modePaginated = "paginated"
	modeCapped    = "capped"
	modeUncapped  = "uncapped"
)

// queryRequest accepts page and pageSize loosely typed: strings, floats and
// garbage all coerce to something usable rather than failing the request.
type queryRequest struct {
	Query    string `json:"query"`
	Page     any    `json:"page"`
	PageSize any    `json:"pageSize"`
	NoLimit  bool   `json:"noLimit"`
}

func (r queryRequest) mode() string {
	switch {
	case r.Page != nil || r.PageSize != nil:
		return modePaginated
	case r.NoLimit:
		return modeUncapped
	default:
		return modeCapped
	}
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query store is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if query.Sanitize(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	mode := request.mode()
	started := time.Now()
	var (
		payload any
		err     error
	)
	switch mode {
	case modePaginated:
		payload, err = query.Paginate(r.Context(), deps.Store, request.Query,
			query.CoercePage(request.Page), query.CoercePageSize(request.PageSize))
	case modeUncapped:
		payload, err = query.Uncapped(r.Context(), deps.Store, request.Query)
	default:
		payload, err = query.Capped(r.Context(), deps.Store, request.Query, query.DefaultRowCap)
	}
	observability.ObserveQuery(mode, time.Since(started), err)

	if err != nil {
		if deps.Logger != nil {
			deps.Logger.InfoContext(r.Context(), "query failed",
				slog.String("mode", mode),
				slog.String("query", strings.TrimSpace(request.Query)),
				slog.Any("error", err),
			)
		}
		if engineErr, ok := query.AsEngineError(err); ok {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", engineMessage(engineErr), false, map[string]any{"op": engineErr.Op})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// engineMessage is the engine's own text without the executor step prefix.
func engineMessage(err *query.EngineError) string {
	if err.Err == nil {
		return err.Error()
	}
	return err.Err.Error()
}
