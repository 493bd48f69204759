package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pq-sarfi/internal/repository"
	"pq-sarfi/internal/service"
)

// apiFixture a fully wired router backed by in-memory repositories
type apiFixture struct {
	router *Router
	events *repository.MemoryEventsRepo
	meters *repository.MemoryMetersRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zap.NewNop()
	standards := repository.NewMemoryStandardsRepo()
	profiles := repository.NewMemoryProfilesRepo()
	events := repository.NewMemoryEventsRepo()
	meters := repository.NewMemoryMetersRepo()

	benchmarkSvc := service.NewBenchmarkService(standards, logger)
	profileSvc := service.NewProfileService(profiles, logger)
	sarfiSvc := service.NewSARFIService(standards, profiles, events, meters, nil, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterBenchmarkRoutes(NewBenchmarkHandler(benchmarkSvc, logger))
	router.RegisterProfileRoutes(NewProfileHandler(profileSvc, logger))
	router.RegisterSARFIRoutes(NewSARFIHandler(sarfiSvc, logger))

	return &apiFixture{router: router, events: events, meters: meters}
}

// do performs one request; a non-nil body is sent as JSON
func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// decodeResult unwraps the response envelope into out and returns the code
func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, out any) int {
	t.Helper()

	var envelope struct {
		Code    int             `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if out != nil && len(envelope.Result) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Result, out))
	}
	return envelope.Code
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	code := decodeResult(t, rec, &body)
	assert.Equal(t, ResultSuccess, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/pq/api/v1/standards"},
		{http.MethodPatch, "/pq/api/v1/standards/some-id"},
		{http.MethodPost, "/pq/api/v1/thresholds/template"},
		{http.MethodGet, "/pq/api/v1/sarfi/monthly"},
		{http.MethodPut, "/pq/api/v1/profiles"},
	}
	for _, tc := range cases {
		rec := f.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_UnknownSubpath(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/pq/api/v1/standards/some-id/bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/pq/api/v1/thresholds/a/b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
