package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenibako/runsheet-golang/runsheet"
	"github.com/zenibako/runsheet-golang/templates"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(runsheet.NewRuns(runsheet.NewMemoryStore()), templates.NewLoader(""), "127.0.0.1:0")
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createCue(t *testing.T, s *Server, run, at, title string) runsheet.Cue {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/runs/"+run+"/cues", map[string]any{
		"scheduledTime":   at,
		"durationMinutes": 10,
		"title":           title,
		"cueType":         "audio",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[runsheet.Cue](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	createCue(t, s, "gala", "19:00", "Walk-in")

	rec := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []string{"gala"}, health.Runs)
}

func TestCueLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	cue := createCue(t, s, "gala", "19:00", "Walk-in Music")
	assert.Equal(t, runsheet.StatusUpcoming, cue.Status)

	rec := do(t, s, http.MethodPost, "/api/v1/runs/gala/cues/"+cue.ID+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runsheet.StatusLive, decode[runsheet.Cue](t, rec).Status)

	rec = do(t, s, http.MethodPost, "/api/v1/runs/gala/cues/"+cue.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runsheet.StatusCompleted, decode[runsheet.Cue](t, rec).Status)

	rec = do(t, s, http.MethodGet, "/api/v1/runs/gala/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runsheet.Stats{Total: 1, Completed: 1}, decode[runsheet.Stats](t, rec))

	rec = do(t, s, http.MethodPost, "/api/v1/runs/gala/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runsheet.Stats{Total: 1, Upcoming: 1}, decode[runsheet.Stats](t, rec))

	rec = do(t, s, http.MethodDelete, "/api/v1/runs/gala/cues/"+cue.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/runs/gala/cues/"+cue.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListIsScheduledOrder(t *testing.T) {
	s := newTestServer(t)
	late := createCue(t, s, "gala", "21:00", "Encore")
	early := createCue(t, s, "gala", "19:00", "Doors")

	rec := do(t, s, http.MethodGet, "/api/v1/runs/gala/cues", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cues := decode[[]runsheet.Cue](t, rec)
	require.Len(t, cues, 2)
	assert.Equal(t, early.ID, cues[0].ID)
	assert.Equal(t, late.ID, cues[1].ID)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	cue := createCue(t, s, "gala", "19:00", "Walk-in")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"invalid transition", http.MethodPost, "/api/v1/runs/gala/cues/" + cue.ID + "/complete", nil, http.StatusConflict, runsheet.CodeInvalidTransition},
		{"unknown cue", http.MethodPost, "/api/v1/runs/gala/cues/nope/start", nil, http.StatusNotFound, runsheet.CodeNotFound},
		{"unknown command", http.MethodPost, "/api/v1/runs/gala/cues/" + cue.ID + "/pause", nil, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"zero duration", http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "19:00", "durationMinutes": 0, "title": "x"}, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"empty title", http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "19:00", "durationMinutes": 5, "title": " "}, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"bad time", http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "7pm", "durationMinutes": 5, "title": "x"}, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"bad type", http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "19:00", "durationMinutes": 5, "title": "x", "cueType": "pyro"}, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"unknown field", http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "19:00", "durationMinutes": 5, "title": "x", "status": "live"}, http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"malformed json", http.MethodPost, "/api/v1/runs/gala/cues", "{", http.StatusBadRequest, runsheet.CodeInvalidRequest},
		{"no route", http.MethodGet, "/api/v2/nothing", nil, http.StatusNotFound, runsheet.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}

	rec := do(t, s, http.MethodGet, "/api/v1/runs/gala/cues/"+cue.ID, nil)
	assert.Equal(t, runsheet.StatusUpcoming, decode[runsheet.Cue](t, rec).Status)
}

func TestBoardCarriesDueState(t *testing.T) {
	s := newTestServer(t)
	createCue(t, s, "gala", "19:00", "Walk-in")

	rec := do(t, s, http.MethodGet, "/api/v1/runs/gala/board", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "Walk-in", raw[0]["title"])
	due, ok := raw[0]["due"].(map[string]any)
	require.True(t, ok, "board entry has a due object")
	assert.Contains(t, []any{"on-time", "due-now", "overdue"}, due["kind"])
}

func TestSeedTemplate(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/runs/conf/template", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	seeded := decode[SeedResponse](t, rec)
	assert.Len(t, seeded.Created, 8)

	rec = do(t, s, http.MethodGet, "/api/v1/runs/conf/stats", nil)
	assert.Equal(t, 8, decode[runsheet.Stats](t, rec).Upcoming)
}

func TestSeedTemplateDisabled(t *testing.T) {
	s := NewServer(runsheet.NewRuns(runsheet.NewMemoryStore()), nil, "127.0.0.1:0")
	rec := do(t, s, http.MethodPost, "/api/v1/runs/conf/template", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type downStore struct {
	*runsheet.MemoryStore
}

func (downStore) Create(context.Context, string, runsheet.CueInput) (runsheet.Cue, error) {
	return runsheet.Cue{}, errors.New("database is locked")
}

func TestStoreFailureIsServiceUnavailable(t *testing.T) {
	s := NewServer(runsheet.NewRuns(downStore{runsheet.NewMemoryStore()}), nil, "127.0.0.1:0")
	rec := do(t, s, http.MethodPost, "/api/v1/runs/gala/cues", map[string]any{"scheduledTime": "19:00", "durationMinutes": 5, "title": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, runsheet.CodeStoreUnavailable, decode[ErrorResponse](t, rec).Error.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("cue sheet on fire")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, runsheet.CodeInternal, decode[ErrorResponse](t, rec).Error.Code)
}

func TestUnknownRunIsNotFound(t *testing.T) {
	s := newTestServer(t)
	createCue(t, s, "gala", "19:00", "Walk-in")

	for _, path := range []string{
		"/api/v1/runs/gaal/cues",
		"/api/v1/runs/gaal/cues/abc",
		"/api/v1/runs/gaal/stats",
		"/api/v1/runs/gaal/board",
	} {
		rec := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, runsheet.CodeNotFound, decode[ErrorResponse](t, rec).Error.Code, path)
	}
	rec := do(t, s, http.MethodPost, "/api/v1/runs/gaal/reset", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gala"}, decode[HealthResponse](t, rec).Runs)
}
