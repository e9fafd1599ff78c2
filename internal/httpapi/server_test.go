package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piizei/a2a-proxy/internal/correlator"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/registry"
	"github.com/piizei/a2a-proxy/internal/router"
	"github.com/piizei/a2a-proxy/internal/session"
)

func newTestServer(t *testing.T, isCoordinator bool) *Server {
	t.Helper()
	reg := registry.New()
	corr := correlator.New(time.Hour)
	r := router.New("proxy-a", reg, nil, corr)

	sess, err := session.New(model.SessionConfig{
		DefaultTTLSeconds: 300, MaxTTLSeconds: 300,
		StoreDir: t.TempDir(),
	})
	require.NoError(t, err)

	return New("proxy-a", isCoordinator, 0, r, reg, sess, WithCard(AgentCard{Name: "proxy-a", URL: "/"}))
}

func TestHandleProxyCard(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proxy-a")
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleMessageSend_UnknownAgent(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/agents/missing/v1/messages:send", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleTopics_ForbiddenOnFollower(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/admin/topics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteSession(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodDelete, "/sessions/anything", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleCreateSession_ThenGetAndExtend(t *testing.T) {
	s := newTestServer(t, false)

	body, err := json.Marshal(createSessionRequest{AgentID: "agent-1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.SessionInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "agent-1", created.AgentID)

	getReq := httptest.NewRequest(http.MethodGet, "/sessions/"+created.SessionID, nil)
	getW := httptest.NewRecorder()
	s.Handler().ServeHTTP(getW, getReq)
	assert.Equal(t, http.StatusOK, getW.Code)

	extendBody, err := json.Marshal(extendSessionRequest{TTLSeconds: 120})
	require.NoError(t, err)
	extendReq := httptest.NewRequest(http.MethodPut, "/sessions/"+created.SessionID+"/extend", bytes.NewReader(extendBody))
	extendW := httptest.NewRecorder()
	s.Handler().ServeHTTP(extendW, extendReq)
	assert.Equal(t, http.StatusOK, extendW.Code)
}

func TestHandleCreateSession_MissingAgentID(t *testing.T) {
	s := newTestServer(t, false)
	body, err := json.Marshal(createSessionRequest{})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListSessions(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSessionStats(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/sessions/stats", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleGetSessionByCorrelation_NotFound(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/sessions/correlation/missing", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleAgentCard_BackwardCompatAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"agent-1","url":"http://agent-1.internal"}`))
	}))
	defer srv.Close()

	reg := registry.New()
	require.NoError(t, reg.Add(model.AgentInfo{ID: "agent-1", ProxyID: "proxy-a", Group: "billing", FQDN: srv.URL}))
	corr := correlator.New(time.Hour)
	r := router.New("proxy-a", reg, nil, corr)
	sess, err := session.New(model.SessionConfig{DefaultTTLSeconds: 300, MaxTTLSeconds: 300, StoreDir: t.TempDir()})
	require.NoError(t, err)
	s := New("proxy-a", false, 0, r, reg, sess, WithCard(AgentCard{Name: "proxy-a", URL: "/"}))

	req := httptest.NewRequest(http.MethodGet, "/agent-1/.well-known/agent.json", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleTopicGroups_ForbiddenOnFollower(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/admin/topics/groups", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleValidateTopic_ForbiddenOnFollower(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/admin/topics/billing/validate", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleRecreateTopic_ForbiddenOnFollower(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPut, "/admin/topics/billing/recreate", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
