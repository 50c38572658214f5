package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/duckcsv/duckcsv/internal/ingest"
	"github.com/duckcsv/duckcsv/internal/query"
)

// multipartSlack covers multipart boundaries and part headers on top of the
// file cap, so a file just under the cap is not rejected for its envelope.
const multipartSlack = 1 << 20

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type importRequest struct {
	Key string `json:"key"`
}

type rowCountResponse struct {
	RowCount int64 `json:"rowCount"`
}

func handleUpload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingest == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INGEST_NOT_CONFIGURED", "ingest is not configured", false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, deps.Ingest.MaxBytes()+multipartSlack)
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart form with a file field is required", false, map[string]any{"details": err.Error()})
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "no file uploaded", false, nil)
			return
		}
		if err != nil {
			if isTooLarge(err) {
				writeTooLarge(deps, w, r)
				return
			}
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart body", false, map[string]any{"details": err.Error()})
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		rowCount, err := deps.Ingest.ImportUpload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeIngestError(deps, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rowCountResponse{RowCount: rowCount})
		return
	}
}

func handlePresign(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingest == nil || !deps.Ingest.ObjectStorageEnabled() {
		writeNotConfigured(w, r)
		return
	}

	var request presignRequest
	if err := decodeOptionalJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid presign request body", false, map[string]any{"details": err.Error()})
		return
	}

	result, err := deps.Ingest.PresignUpload(r.Context(), ingest.PresignRequest{
		Filename:    request.Filename,
		ContentType: request.ContentType,
	})
	if err != nil {
		writeIngestError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presignResponse{UploadURL: result.UploadURL, Key: result.Key, ExpiresAt: result.ExpiresAt})
}

func handleImport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingest == nil || !deps.Ingest.ObjectStorageEnabled() {
		writeNotConfigured(w, r)
		return
	}

	var request importRequest
	if err := decodeOptionalJSON(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid import request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Key) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "KEY_REQUIRED", "key is required", false, nil)
		return
	}

	rowCount, err := deps.Ingest.ImportObject(r.Context(), request.Key)
	if err != nil {
		writeIngestError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowCountResponse{RowCount: rowCount})
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "import history is not configured", false, nil)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}

	entries, err := deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list import history", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// writeIngestError maps ingest failures onto status codes. Engine failures
// on this path are 500s.
func writeIngestError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var storageErr *ingest.StorageError
	switch {
	case errors.Is(err, ingest.ErrNotConfigured):
		writeNotConfigured(w, r)
	case errors.Is(err, ingest.ErrKeyRequired):
		writeError(r.Context(), w, http.StatusBadRequest, "KEY_REQUIRED", err.Error(), false, nil)
	case isTooLarge(err):
		writeTooLarge(deps, w, r)
	case errors.As(err, &storageErr):
		writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error(), true, map[string]any{"op": storageErr.Op, "key": storageErr.Key})
	case query.IsEngineError(err):
		writeError(r.Context(), w, http.StatusInternalServerError, "LOAD_FAILED", err.Error(), false, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "IMPORT_FAILED", err.Error(), false, nil)
	}
}

func writeNotConfigured(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, http.StatusNotImplemented, "OBJECT_STORAGE_NOT_CONFIGURED", ingest.ErrNotConfigured.Error(), false, nil)
}

func writeTooLarge(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "file exceeds upload size limit", false, map[string]any{"max_bytes": deps.Ingest.MaxBytes()})
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.Is(err, ingest.ErrPayloadTooLarge) || errors.As(err, &maxBytesErr)
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
