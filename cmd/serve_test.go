package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tank-risk/internal/assess"
	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/resilience"
)

func testServer(run runFunc) *server {
	reg := prometheus.NewRegistry()
	assess.NewMetrics(reg)
	return &server{
		catalog:  factor.Default(),
		registry: reg,
		breaker:  resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "test", FailureThreshold: 1}),
		run:      run,
	}
}

func TestRoutes_Health(t *testing.T) {
	h := testServer(nil).routes([]string{"*"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "closed", body["proximity"])
}

func TestRoutes_HealthCircuitOpen(t *testing.T) {
	s := testServer(nil)
	_ = s.breaker.Execute(context.Background(), func(context.Context) error {
		return errors.New("connection refused")
	})
	require.Equal(t, resilience.CircuitOpen, s.breaker.State())

	rr := httptest.NewRecorder()
	s.routes(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}

func TestRoutes_Factors(t *testing.T) {
	h := testServer(nil).routes(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/factors", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []factorView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 11)
	assert.Equal(t, "Aquifer_RechargeDischargeAreas", got[0].Name)
	assert.Equal(t, []string{"ZONE"}, got[0].Required)
}

func TestRoutes_AssessOK(t *testing.T) {
	var gotReq assessmentRequest
	h := testServer(func(_ context.Context, req assessmentRequest) (*assess.Report, error) {
		gotReq = req
		return &assess.Report{
			RunID:   uuid.New(),
			State:   assess.Done,
			Success: true,
			Header:  []string{"FACILITYID", "lakesVal", "lakeSev"},
			Rows:    [][]any{{"e1", 40.0, 5}},
		}, nil
	}).routes(nil)

	body := `{"assets":"gis.tanks","layers":["gis.LakesNHDHighRes"],"workers":2}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gis.tanks", gotReq.Assets)
	assert.Equal(t, []string{"gis.LakesNHDHighRes"}, gotReq.Layers)
	require.NotNil(t, gotReq.Workers)
	assert.Equal(t, 2, *gotReq.Workers)
	assert.False(t, gotReq.Write)

	var rep map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, "done", rep["state"])
	assert.Equal(t, true, rep["success"])
}

func TestRoutes_AssessFailedRun(t *testing.T) {
	h := testServer(func(context.Context, assessmentRequest) (*assess.Report, error) {
		return &assess.Report{RunID: uuid.New(), State: assess.Failed}, errors.New("missing required fields")
	}).routes(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"failed"`)
}

func TestRoutes_AssessSetupError(t *testing.T) {
	h := testServer(func(context.Context, assessmentRequest) (*assess.Report, error) {
		return nil, errors.New("unknown output format \"gdb\"")
	}).routes(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader(`{"write":true}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown output format")
}

func TestRoutes_AssessBadBody(t *testing.T) {
	h := testServer(nil).routes(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestRoutes_Metrics(t *testing.T) {
	h := testServer(nil).routes(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tankrisk_records_scored_total")
}

func TestRoutes_CORSPreflight(t *testing.T) {
	h := testServer(nil).routes([]string{"https://gis.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/assessments", nil)
	req.Header.Set("Origin", "https://gis.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://gis.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
