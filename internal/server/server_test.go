package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/config"
	"cteview/internal/dataset"
	"cteview/internal/session"
	"cteview/internal/table"
	"cteview/internal/view"
)

func newTestServer(t *testing.T, loader dataset.Loader) *Server {
	t.Helper()

	cfg := config.Default()
	r := view.NewRouter(view.Home())
	r.Register(session.ViewAnalysis, view.NewAnalysis(cfg, nil))

	s := New(Options{SessionTTL: time.Minute, Loader: loader, Router: r})
	t.Cleanup(s.Sessions.Close)
	return s
}

func failingLoader() dataset.Loader {
	return dataset.LoaderFunc(func(_ context.Context, src config.Source) (*table.Table, error) {
		return nil, &dataset.DataLoadError{Source: src, Err: errors.New("boom")}
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, s *Server) SessionResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateSessionStartsOnHome(t *testing.T) {
	s := newTestServer(t, failingLoader())

	resp := createSession(t, s)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, session.NewState(), resp.State)
	assert.Equal(t, 1, s.Sessions.Len())
}

func TestSessionsAreIndependent(t *testing.T) {
	s := newTestServer(t, failingLoader())
	a := createSession(t, s)
	b := createSession(t, s)
	require.NotEqual(t, a.ID, b.ID)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/"+a.ID+"/navigate", `{"target_view":"analysis"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/sessions/"+b.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.ViewHome, got.State.View)
}

func TestPostEvents(t *testing.T) {
	s := newTestServer(t, failingLoader())
	id := createSession(t, s).ID

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "navigate", body: `{"type":"navigate","target_view":"analysis"}`, code: http.StatusOK},
		{name: "select_x", body: `{"type":"select","field":"x","value":"Student Enrollment"}`, code: http.StatusOK},
		{name: "unknown_field", body: `{"type":"select","field":"z","value":"1"}`, code: http.StatusBadRequest},
		{name: "unknown_type", body: `{"type":"jump"}`, code: http.StatusBadRequest},
		{name: "malformed", body: `{`, code: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/sessions/"+id+"/events", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	sess, ok := s.Sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, session.State{View: "analysis", X: "Student Enrollment"}, sess.State())
}

func TestSelectShortcut(t *testing.T) {
	s := newTestServer(t, failingLoader())
	id := createSession(t, s).ID

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/"+id+"/select", `{"field":"industry","value":"Construction"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Construction", got.State.Industry)
}

func TestUnknownSessionIs404(t *testing.T) {
	s := newTestServer(t, failingLoader())

	rec := do(t, s, http.MethodGet, "/api/v1/sessions/nope/page", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	assert.Equal(t, "session not found", er.Message)
	assert.Len(t, er.CorrelationID, 8)
}

func TestPageRendersHomeThenAnalysisError(t *testing.T) {
	s := newTestServer(t, failingLoader())
	id := createSession(t, s).ID

	rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+id+"/page", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var home view.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &home))
	assert.Equal(t, "NCED: CTE Data Application", home.Title)

	do(t, s, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", `{"target_view":"analysis"}`)
	rec = do(t, s, http.MethodGet, "/api/v1/sessions/"+id+"/page", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page view.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, session.ViewAnalysis, page.View)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "data load failed: boom", page.Messages[0].Text)

	// The session survives the failed render and can still go home.
	rec = do(t, s, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", `{"target_view":"home"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, failingLoader())
	id := createSession(t, s).ID

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/v1/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/v1/sessions/"+id, "").Code)
	assert.Equal(t, 0, s.Sessions.Len())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, failingLoader())

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"analysis"`)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	st := NewStore(20*time.Millisecond, failingLoader(), nil)
	sess := st.Create()

	_, ok := st.Get(sess.ID)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = st.Get(sess.ID)
	assert.False(t, ok)
}
