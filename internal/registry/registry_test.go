package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piizei/a2a-proxy/internal/model"
)

func agent(id, proxyID, group string) model.AgentInfo {
	return model.AgentInfo{ID: id, ProxyID: proxyID, Group: group}
}

func TestLoadFromConfig_FillsGroupFromKey(t *testing.T) {
	r := New()
	err := r.LoadFromConfig(map[string][]model.AgentInfo{
		"billing": {{ID: "agent-1", ProxyID: "proxy-a"}},
	})
	require.NoError(t, err)

	a, ok := r.Get("agent-1")
	require.True(t, ok)
	assert.Equal(t, "billing", a.Group)
}

func TestLoadFromConfig_RejectsInvalidAgent(t *testing.T) {
	r := New()
	err := r.LoadFromConfig(map[string][]model.AgentInfo{
		"billing": {{ID: "", ProxyID: "proxy-a"}},
	})
	assert.Error(t, err)
}

func TestGetByGroup(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(agent("a1", "p1", "billing")))
	require.NoError(t, r.Add(agent("a2", "p1", "billing")))
	require.NoError(t, r.Add(agent("a3", "p1", "support")))

	assert.Len(t, r.GetByGroup("billing"), 2)
	assert.Len(t, r.GetByGroup("support"), 1)
	assert.Len(t, r.GetByGroup("missing"), 0)
}

func TestRemove(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(agent("a1", "p1", "billing")))
	r.Remove("a1")
	_, ok := r.Get("a1")
	assert.False(t, ok)
}

func TestGroups(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(agent("a1", "p1", "billing")))
	require.NoError(t, r.Add(agent("a2", "p1", "support")))
	assert.ElementsMatch(t, []string{"billing", "support"}, r.Groups())
}

func TestIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	a := agent("a1", "p1", "billing")
	a.HealthEndpoint = srv.URL
	require.NoError(t, r.Add(a))

	assert.True(t, r.IsHealthy(context.Background(), "a1"))
}

func TestIsHealthy_NoEndpointIsUnhealthy(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(agent("a1", "p1", "billing")))
	assert.False(t, r.IsHealthy(context.Background(), "a1"))
}

func TestIsHealthy_UnknownAgentIsUnhealthy(t *testing.T) {
	r := New()
	assert.False(t, r.IsHealthy(context.Background(), "missing"))
}

func TestHealthSnapshot_ProbesEveryAgentConcurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	healthy := agent("a1", "p1", "billing")
	healthy.HealthEndpoint = srv.URL
	require.NoError(t, r.Add(healthy))
	require.NoError(t, r.Add(agent("a2", "p1", "billing")))

	snapshot := r.HealthSnapshot(context.Background())
	assert.True(t, snapshot["a1"])
	assert.False(t, snapshot["a2"])
}
