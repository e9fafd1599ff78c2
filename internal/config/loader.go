// Package config loads and validates the proxy's process configuration
// from a flat YAML document.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/piizei/a2a-proxy/internal/model"
)

// Load reads filename, parses it as a ProxyConfig, applies environment
// overrides for bus credentials, and validates the result.
func Load(filename string) (*model.ProxyConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg model.ProxyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return &cfg, nil
}

// applyEnvOverrides lets operators inject secrets at deploy time rather
// than committing them to the YAML document.
func applyEnvOverrides(cfg *model.ProxyConfig) {
	if v := os.Getenv("A2A_BUS_CONNECTION_STRING"); v != "" {
		cfg.BusCredential.ConnectionString = v
	}
	if v := os.Getenv("A2A_BUS_TENANT_ID"); v != "" {
		cfg.BusCredential.TenantID = v
	}
	if v := os.Getenv("A2A_BUS_CLIENT_ID"); v != "" {
		cfg.BusCredential.ClientID = v
	}
	if v := os.Getenv("A2A_BUS_CLIENT_SECRET"); v != "" {
		cfg.BusCredential.ClientSecret = v
	}
	if v := os.Getenv("A2A_BUS_NAMESPACE"); v != "" {
		cfg.BusNamespace = v
	}
}

// applyDefaults fills in values the operator is allowed to omit.
func applyDefaults(cfg *model.ProxyConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Role == "" {
		cfg.Role = model.RoleFollower
	}
	if cfg.Sessions.DefaultTTLSeconds == 0 {
		cfg.Sessions.DefaultTTLSeconds = 3600
	}
	if cfg.Sessions.MaxTTLSeconds == 0 {
		cfg.Sessions.MaxTTLSeconds = 86400
	}
	if cfg.Sessions.MaxSessionsPerAgent == 0 {
		cfg.Sessions.MaxSessionsPerAgent = 100
	}
	if cfg.Sessions.CleanupIntervalSeconds == 0 {
		cfg.Sessions.CleanupIntervalSeconds = 60
	}
	if cfg.Sessions.StoreDir == "" {
		cfg.Sessions.StoreDir = "./data/sessions"
	}
}
