package api

import (
	"bufio"
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"climateprep/adapters/store"
	"climateprep/app"
	"climateprep/domain/core"
	"climateprep/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const carbonCSV = "scope_1_emissions,scope_2_emissions,scope_3_emissions,reporting_year\n" +
	"45000,35000,45000,2023\n" +
	"43000,36000,48000,2022\n"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*Server
	reports *store.MemoryReportRepository
	hub     *ProgressHub
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	reports := store.NewMemoryReportRepository()
	hub := NewProgressHub()
	t.Cleanup(hub.Close)

	prep := app.NewPrepService(app.PrepDeps{Reports: reports, Progress: hub})
	batch := app.NewBatchService(prep, app.BatchConfig{Concurrency: 2})
	srv := NewServer(ServerDeps{
		Prep:           prep,
		Batch:          batch,
		Reports:        reports,
		Hub:            hub,
		MaxUploadBytes: maxUpload,
		ProcessTimeout: 10 * time.Second,
	})
	return &testServer{Server: srv, reports: reports, hub: hub}
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/data/upload", body)
	req.Header.Set("Content-Type", contentType)
	return s.do(req)
}

func TestHealthAndSchemas(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "schemas").Int())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/schemas", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	names := gjson.Get(rec.Body.String(), "schemas.#.name").Array()
	require.Len(t, names, 3)
	assert.Equal(t, "carbon_footprint", names[0].String())
	assert.Equal(t, `["reporting_year","scope_1_emissions"]`,
		gjson.Get(rec.Body.String(), "schemas.0.required_fields").Raw)
}

func TestUploadProcessesAndPersists(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := srv.upload(t, map[string]string{"schema": "carbon_footprint"},
		formFile{"file", "emissions.csv", carbonCSV})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Equal(t, "carbon_footprint", gjson.Get(body, "report.schema").String())
	assert.Equal(t, "emissions.csv", gjson.Get(body, "report.file.filename").String())
	assert.Equal(t, int64(2), gjson.Get(body, "cleaned_data.#").Int())
	assert.Equal(t, 125000.0, gjson.Get(body, "cleaned_data.0.total_emissions").Float())
	assert.True(t, gjson.Get(body, "cleaned_data.0.quality_flag").Exists())

	id := gjson.Get(body, "report.id").String()
	require.NotEmpty(t, id)
	stored, err := srv.reports.Get(context.Background(), core.ReportID(id))
	require.NoError(t, err)
	assert.Equal(t, "emissions.csv", stored.File.Filename)
}

func TestUploadAutoDetectsSchema(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := srv.upload(t, nil, formFile{"file", "emissions.csv", carbonCSV})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carbon_footprint", gjson.Get(rec.Body.String(), "report.schema").String())
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		files    []formFile
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing file field",
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "unsupported format",
			files:    []formFile{{"file", "data.txt", "a,b\n1,2\n"}},
			wantCode: http.StatusUnsupportedMediaType,
			wantErr:  "UNSUPPORTED_FORMAT",
		},
		{
			name:     "malformed json",
			files:    []formFile{{"file", "data.json", `[{"a": 1`}},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "PARSE_ERROR",
		},
		{
			name:     "unknown schema",
			fields:   map[string]string{"schema": "ocean_data"},
			files:    []formFile{{"file", "emissions.csv", carbonCSV}},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "too large",
			files:    []formFile{{"file", "big.csv", strings.Repeat("1,2\n", 64)}},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "UPLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 128)
			rec := srv.upload(t, tt.fields, tt.files...)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, gjson.Get(rec.Body.String(), "code").String())
			assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
		})
	}
}

func TestBatchUpload(t *testing.T) {
	srv := newTestServer(t, 256)

	body, contentType := multipartBody(t, map[string]string{"schema": "carbon_footprint"},
		formFile{"files", "a.csv", carbonCSV},
		formFile{"files", "notes.txt", "hello"},
		formFile{"files", "huge.csv", strings.Repeat("45000,2023\n", 40)},
		formFile{"files", "b.csv", carbonCSV},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/data/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := rec.Body.String()
	assert.Equal(t, int64(4), gjson.Get(out, "count").Int())
	assert.Equal(t, int64(2), gjson.Get(out, "failed").Int())
	assert.Equal(t, `["a.csv","notes.txt","huge.csv","b.csv"]`, gjson.Get(out, "results.#.filename").Raw)
	assert.Equal(t, "carbon_footprint", gjson.Get(out, "results.0.report.schema").String())
	assert.Equal(t, "UNSUPPORTED_FORMAT", gjson.Get(out, "results.1.code").String())
	assert.Equal(t, "UPLOAD_TOO_LARGE", gjson.Get(out, "results.2.code").String())
	assert.True(t, gjson.Get(out, "results.3.report.id").Exists())

	list, err := srv.reports.List(context.Background(), ports.ReportFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestBatchRequiresFiles(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	body, contentType := multipartBody(t, map[string]string{"schema": "auto"})
	req := httptest.NewRequest(http.MethodPost, "/api/data/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := srv.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	rec := srv.upload(t, nil, formFile{"file", "emissions.csv", carbonCSV})
	require.Equal(t, http.StatusOK, rec.Code)
	id := gjson.Get(rec.Body.String(), "report.id").String()

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "count").Int())
	assert.Equal(t, id, gjson.Get(rec.Body.String(), "reports.0.id").String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports?schema=weather_data", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "count").Int())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emissions.csv", gjson.Get(rec.Body.String(), "file.filename").String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports/"+id+"/markdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Data quality report: emissions.csv"))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports/"+id+"/html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/data/reports/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(rec.Body.String(), "code").String())
}

func TestEventsRequireSession(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/data/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsStreamUploadProgress(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/data/events?session_id=s-1", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"), resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return srv.hub.ClientCount("s-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := srv.upload(t, map[string]string{"session_id": "s-1"}, formFile{"file", "emissions.csv", carbonCSV})
	require.Equal(t, http.StatusOK, rec.Code)

	var stages []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		event := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if gjson.Get(event, "status").String() != string(ports.ProgressCompleted) {
			continue
		}
		stages = append(stages, gjson.Get(event, "stage").String())
		if gjson.Get(event, "stage").String() == app.StagePersist {
			break
		}
	}
	assert.Equal(t, []string{app.StageRead, app.StageMap, app.StageClean, app.StageScore, app.StagePersist}, stages)
}

func TestProgressHubSubscribe(t *testing.T) {
	hub := NewProgressHub()
	defer hub.Close()

	events, unsubscribe := hub.Subscribe("s-1")
	assert.Equal(t, 1, hub.ClientCount("s-1"))
	assert.Equal(t, []core.SessionID{"s-1"}, hub.ActiveSessions())

	hub.Report(ports.ProgressEvent{SessionID: "other", Stage: "read"})
	hub.Report(ports.ProgressEvent{SessionID: "", Stage: "read"})
	hub.Report(ports.ProgressEvent{SessionID: "s-1", Stage: "clean"})

	select {
	case e := <-events:
		assert.Equal(t, "clean", e.Stage)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	unsubscribe()
	unsubscribe()
	assert.Zero(t, hub.ClientCount("s-1"))
	assert.Empty(t, hub.ActiveSessions())
	_, open := <-events
	assert.False(t, open)
}
