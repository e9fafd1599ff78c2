package config

import (
	"fmt"

	"github.com/piizei/a2a-proxy/internal/model"
)

// Validate enforces the invariants a ProxyConfig must satisfy before the
// proxy can start: required identity fields, a sane role, and a
// consistent agent registry.
func Validate(cfg *model.ProxyConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("id is required")
	}
	if cfg.BusNamespace == "" {
		return fmt.Errorf("busNamespace is required")
	}
	if cfg.Role != model.RoleCoordinator && cfg.Role != model.RoleFollower {
		return fmt.Errorf("role must be %q or %q, got %q", model.RoleCoordinator, model.RoleFollower, cfg.Role)
	}
	for group, agents := range cfg.AgentRegistry {
		for i := range agents {
			if err := agents[i].Validate(); err != nil {
				return fmt.Errorf("agentRegistry[%s][%d]: %w", group, i, err)
			}
		}
	}
	for _, sub := range cfg.Subscriptions {
		if sub.Group == "" {
			return fmt.Errorf("subscriptions: group is required")
		}
	}
	return nil
}
