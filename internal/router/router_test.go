package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piizei/a2a-proxy/internal/correlator"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/registry"
)

func TestRoute_UnknownAgentFails(t *testing.T) {
	reg := registry.New()
	corr := correlator.New(time.Hour)
	r := New("proxy-a", reg, nil, corr)

	_, err := r.Route(context.Background(), Request{AgentID: "missing", Path: "/v1/x", Method: "GET"})
	assert.Error(t, err)
}

func TestRoute_LocalAgentCallsDirectly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v1/messages:send", req.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	reg := registry.New()
	require.NoError(t, reg.Add(model.AgentInfo{ID: "agent-1", ProxyID: "proxy-a", Group: "billing", FQDN: srv.URL}))

	corr := correlator.New(time.Hour)
	r := New("proxy-a", reg, nil, corr)

	resp, err := r.Route(context.Background(), Request{
		AgentID: "agent-1",
		Path:    "/v1/messages:send",
		Method:  http.MethodPost,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "ok")
}

func TestRoute_RemoteAgentIsNotLocal(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Add(model.AgentInfo{ID: "agent-2", ProxyID: "proxy-b", Group: "billing", FQDN: "http://agent-2.local"}))

	agent, _ := reg.Get("agent-2")
	assert.False(t, agent.IsLocalTo("proxy-a"))
}
