package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/gridmap/internal/config"
	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/runner"
	"github.com/JonMunkholm/gridmap/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Database:  config.DatabaseConfig{MaxConns: 1, BatchSize: 10},
		Transform: config.TransformConfig{MaxUploadSize: 1 << 20, ContextCheckInterval: 100, Timeout: time.Minute},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func testServer(t *testing.T, cfg *config.Config, runs RunReader) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roster.csv"), []byte("Name,Team\nann,red\nbob,\n"), 0o600))

	pipelines, err := config.ParsePipelines([]byte(`
pipelines:
  - name: roster
    source: {path: roster.csv}
    columns:
      name: Name
      team: {name: Team, autofill: true}
  - name: broken
    source: {path: missing.csv}
    columns: [A]
`), dir, 0)
	require.NoError(t, err)

	return NewServer(cfg, runner.New(runner.Options{Limiter: runner.NewLimiter(2, time.Second)}), pipelines, runs)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func upload(t *testing.T, filename string, data []byte, cfg string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("config", cfg))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transform", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	rec := do(t, testServer(t, testConfig(), nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.False(t, got.Database)
	assert.Equal(t, 2, got.Pipelines)
	assert.Equal(t, 2, got.Runs.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListPipelines(t *testing.T) {
	rec := do(t, testServer(t, testConfig(), nil), httptest.NewRequest(http.MethodGet, "/api/pipelines", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]pipelineInfo](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "roster", got[0].Name)
	assert.Equal(t, []string{"name", "team"}, got[0].Fields)
	assert.Equal(t, 0, *got[0].HeaderOffset)
}

func TestRunPipeline(t *testing.T) {
	rec := do(t, testServer(t, testConfig(), nil), httptest.NewRequest(http.MethodPost, "/api/pipelines/roster/run", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[runner.Report](t, rec)
	require.Len(t, got.Records, 2)
	assert.Equal(t, core.Record{"name": "bob", "team": "red"}, got.Records[1].Record)
	assert.Equal(t, 3, got.Records[1].Line)
	assert.Empty(t, got.Issues)
}

func TestRunPipeline_Errors(t *testing.T) {
	s := testServer(t, testConfig(), nil)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/pipelines/nope/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PIPE001", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/pipelines/broken/run", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SRC007", decode[ErrorResponse](t, rec).Code)
}

func TestTransform_Upload(t *testing.T) {
	cfg := `
header_offset: 1
columns:
  - {name: Amount, field: amount, default: "0"}
  - Code
target: row
context: {batch: 7}
`
	data := []byte("exported 2024\nCode,Amount\nA1,12\nB2,\n")
	rec := do(t, testServer(t, testConfig(), nil), upload(t, "ledger.csv", data, cfg))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[runner.Report](t, rec)
	assert.Equal(t, "upload", got.Pipeline)
	require.Len(t, got.Records, 2)
	assert.Equal(t, core.Record{"amount": "0", "Code": "B2"}, got.Records[1].Record)
	assert.Equal(t, map[string]any{
		"batch": float64(7),
		"row":   map[string]any{"amount": "0", "Code": "B2"},
	}, got.Records[1].Context)
}

func TestTransform_ReportsIssues(t *testing.T) {
	rec := do(t, testServer(t, testConfig(), nil), upload(t, "x.csv", []byte("A\n1\n"), `columns: [A, B]`))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[runner.Report](t, rec)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "COL001", got.Issues[0].Code)
	assert.Equal(t, core.Record{"A": "1"}, got.Records[0].Record)
}

func TestTransform_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		cfg      string
		wantCode int
		wantErr  string
	}{
		{
			name:     "no file",
			cfg:      "columns: [A]",
			wantCode: http.StatusBadRequest,
			wantErr:  "SRC005",
		},
		{
			name:     "no columns",
			filename: "x.csv",
			data:     "A\n1\n",
			wantCode: http.StatusBadRequest,
			wantErr:  "COL002",
		},
		{
			name:     "unsupported format",
			filename: "x.bin",
			data:     "\x00\x01\x02",
			cfg:      "columns: [A]",
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "SRC001",
		},
		{
			name:     "bad range",
			filename: "x.csv",
			data:     "A\n",
			cfg:      "source: {range: 'A1:'}\ncolumns: [A]",
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "SRC002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := upload(t, tt.filename, []byte(tt.data), tt.cfg)
			rec := do(t, testServer(t, testConfig(), nil), req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestTransform_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Transform.MaxUploadSize = 64

	rec := do(t, testServer(t, cfg, nil), upload(t, "x.csv", bytes.Repeat([]byte("a,b\n"), 100), "columns: [a]"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "SRC004", decode[ErrorResponse](t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := testServer(t, cfg, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/pipelines", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/pipelines", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)

	assert.Equal(t, http.StatusOK, do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

type fakeRuns map[uuid.UUID]*store.Run

func (f fakeRuns) GetRun(_ context.Context, id uuid.UUID) (*store.Run, error) {
	if run, ok := f[id]; ok {
		return run, nil
	}
	return nil, store.ErrRunNotFound
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	s := testServer(t, testConfig(), fakeRuns{id: {ID: id, Pipeline: "roster", Status: store.StatusCompleted, Rows: 2}})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "roster", decode[store.Run](t, rec).Pipeline)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PIPE003", decode[ErrorResponse](t, rec).Code)

	rec = do(t, testServer(t, testConfig(), nil), httptest.NewRequest(http.MethodGet, "/api/runs/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(runner.ErrBusy))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
