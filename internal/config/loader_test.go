package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
id: proxy-a
role: coordinator
busNamespace: my-ns.servicebus.windows.net
hostedAgents:
  billing:
    - agent-1
subscriptions:
  - group: billing
    filter: "toProxy = 'proxy-a'"
agentRegistry:
  billing:
    - id: agent-1
      proxyId: proxy-a
      group: billing
      fqdn: http://agent-1.local:9000
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "proxy-a", cfg.ID)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3600, cfg.Sessions.DefaultTTLSeconds)
	assert.Equal(t, 100, cfg.Sessions.MaxSessionsPerAgent)
	assert.True(t, cfg.IsCoordinator())
}

func TestLoad_EnvOverridesConnectionString(t *testing.T) {
	t.Setenv("A2A_BUS_CONNECTION_STRING", "Endpoint=sb://override")
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Endpoint=sb://override", cfg.BusCredential.ConnectionString)
}

func TestLoad_MissingIDFails(t *testing.T) {
	path := writeTemp(t, `
role: follower
busNamespace: ns.servicebus.windows.net
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidRoleFails(t *testing.T) {
	path := writeTemp(t, `
id: proxy-a
role: admin
busNamespace: ns.servicebus.windows.net
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
