// Package model defines the core, transport-agnostic data types shared by
// every proxy subsystem: agent identity, configuration, the bus wire
// envelope and message wrapper, and sessions.
package model

import "fmt"

// AgentInfo describes an agent known to this proxy's registry, whether
// hosted locally or owned by a peer proxy. It is immutable once loaded.
type AgentInfo struct {
	ID                 string            `yaml:"id" json:"id"`
	ProxyID            string            `yaml:"proxyId" json:"proxyId"`
	Group              string            `yaml:"group" json:"group"`
	FQDN               string            `yaml:"fqdn,omitempty" json:"fqdn,omitempty"`
	HealthEndpoint     string            `yaml:"healthEndpoint,omitempty" json:"healthEndpoint,omitempty"`
	AgentCardEndpoint  string            `yaml:"agentCardEndpoint,omitempty" json:"agentCardEndpoint,omitempty"`
	Description        string            `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities       []string          `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	A2ACapabilities    map[string]string `yaml:"a2aCapabilities,omitempty" json:"a2aCapabilities,omitempty"`
}

// Validate checks the AgentInfo invariants: id, proxyId, and group must be
// nonempty.
func (a *AgentInfo) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("model: agent id must not be empty")
	}
	if a.ProxyID == "" {
		return fmt.Errorf("model: agent %q: proxyId must not be empty", a.ID)
	}
	if a.Group == "" {
		return fmt.Errorf("model: agent %q: group must not be empty", a.ID)
	}
	return nil
}

// IsLocalTo reports whether this agent is hosted by the proxy identified by
// proxyID: it must be owned by that proxy and carry a reachable address.
func (a *AgentInfo) IsLocalTo(proxyID string) bool {
	return a.ProxyID == proxyID && a.FQDN != ""
}
