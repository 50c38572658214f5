package duckcsvctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// request is one prepared call against the API.
type request struct {
	method      string
	path        string
	contentType string
	body        io.Reader
}

var errUsage = errors.New("usage")

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("duckcsvctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "duckcsv API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	req, err := buildRequest(command, fs.Args()[1:], stderr)
	if err != nil {
		if !errors.Is(err, errUsage) {
			_, _ = fmt.Fprintf(stderr, "%s: %v\n\n", command, err)
		}
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req, endpoint)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(command string, args []string, stderr io.Writer) (request, error) {
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/ready"}, nil
	case "query":
		return queryRequest(args, stderr)
	case "upload":
		if len(args) != 1 {
			return request{}, errors.New("expected exactly one file path")
		}
		return uploadRequest(args[0])
	case "presign":
		fs := flag.NewFlagSet("presign", flag.ContinueOnError)
		fs.SetOutput(stderr)
		contentType := fs.String("content-type", "", "content type the upload will be sent with")
		if err := fs.Parse(args); err != nil {
			return request{}, errUsage
		}
		if fs.NArg() != 1 {
			return request{}, errors.New("expected exactly one filename")
		}
		payload := map[string]any{"filename": fs.Arg(0)}
		if strings.TrimSpace(*contentType) != "" {
			payload["contentType"] = strings.TrimSpace(*contentType)
		}
		return jsonRequest("/upload/presign", payload)
	case "import":
		if len(args) != 1 {
			return request{}, errors.New("expected exactly one object key")
		}
		return jsonRequest("/upload/import", map[string]any{"key": args[0]})
	case "history":
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		fs.SetOutput(stderr)
		limit := fs.Int("limit", 0, "maximum number of entries")
		if err := fs.Parse(args); err != nil {
			return request{}, errUsage
		}
		path := "/upload/history"
		if *limit > 0 {
			path += "?" + url.Values{"limit": []string{strconv.Itoa(*limit)}}.Encode()
		}
		return request{method: http.MethodGet, path: path}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func queryRequest(args []string, stderr io.Writer) (request, error) {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	page := fs.Int("page", 0, "page number, starting at 1")
	pageSize := fs.Int("page-size", 0, "rows per page")
	noLimit := fs.Bool("no-limit", false, "return every row")
	if err := fs.Parse(args); err != nil {
		return request{}, errUsage
	}
	sqlText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if sqlText == "" {
		return request{}, errors.New("sql is required")
	}

	payload := map[string]any{"query": sqlText}
	if *page > 0 {
		payload["page"] = *page
	}
	if *pageSize > 0 {
		payload["pageSize"] = *pageSize
	}
	if *noLimit {
		payload["noLimit"] = true
	}
	return jsonRequest("/query", payload)
}

func uploadRequest(path string) (request, error) {
	file, err := os.Open(path)
	if err != nil {
		return request{}, err
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return request{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return request{}, err
	}
	if err := writer.Close(); err != nil {
		return request{}, err
	}
	return request{
		method:      http.MethodPost,
		path:        "/upload",
		contentType: writer.FormDataContentType(),
		body:        &body,
	}, nil
}

func jsonRequest(path string, payload map[string]any) (request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return request{}, err
	}
	return request{
		method:      http.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        bytes.NewReader(raw),
	}, nil
}

func doRequest(ctx context.Context, client *http.Client, r request, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: duckcsvctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                                     GET /health")
	_, _ = fmt.Fprintln(w, "  ready                                      GET /ready")
	_, _ = fmt.Fprintln(w, "  query [-page N] [-page-size N] [-no-limit] SQL")
	_, _ = fmt.Fprintln(w, "                                             POST /query")
	_, _ = fmt.Fprintln(w, "  upload FILE                                POST /upload")
	_, _ = fmt.Fprintln(w, "  presign [-content-type T] FILENAME         POST /upload/presign")
	_, _ = fmt.Fprintln(w, "  import KEY                                 POST /upload/import")
	_, _ = fmt.Fprintln(w, "  history [-limit N]                         GET /upload/history")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
