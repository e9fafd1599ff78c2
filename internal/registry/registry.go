// Package registry holds the proxy's view of agent membership: which
// agents exist, which group and proxy each belongs to, and whether those
// with a health endpoint are currently healthy.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
)

// DefaultHealthCacheTTL bounds how long a health probe result is reused
// before the next IsHealthy call triggers a fresh probe.
const DefaultHealthCacheTTL = 10 * time.Second

type healthEntry struct {
	healthy   bool
	checkedAt time.Time
}

// Registry is the concurrency-safe, in-memory agent directory. It is
// seeded from configuration at startup; LoadFromConfig replaces its
// contents wholesale and Add/Remove change single entries.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]model.AgentInfo // keyed by agent id

	healthMu   sync.Mutex
	health     map[string]healthEntry
	healthTTL  time.Duration
	httpClient *http.Client
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		agents:     make(map[string]model.AgentInfo),
		health:     make(map[string]healthEntry),
		healthTTL:  DefaultHealthCacheTTL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// LoadFromConfig replaces the registry's contents with the agents listed
// under the configuration's agentRegistry, grouped as given.
func (r *Registry) LoadFromConfig(byGroup map[string][]model.AgentInfo) error {
	agents := make(map[string]model.AgentInfo)
	for group, list := range byGroup {
		for _, a := range list {
			if a.Group == "" {
				a.Group = group
			}
			if err := a.Validate(); err != nil {
				return fmt.Errorf("registry: %w", err)
			}
			agents[a.ID] = a
		}
	}
	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
	r.reportAgentCounts()
	return nil
}

// Add registers or replaces a single agent.
func (r *Registry) Add(a model.AgentInfo) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	r.mu.Lock()
	r.agents[a.ID] = a
	r.mu.Unlock()
	r.reportAgentCounts()
	return nil
}

// Remove deletes an agent from the registry. It is a no-op if the id is
// unknown.
func (r *Registry) Remove(agentID string) {
	r.mu.Lock()
	delete(r.agents, agentID)
	r.mu.Unlock()
	r.reportAgentCounts()
}

// reportAgentCounts recomputes the registered-agents gauge per group.
func (r *Registry) reportAgentCounts() {
	r.mu.RLock()
	counts := make(map[string]int)
	for _, a := range r.agents {
		counts[a.Group]++
	}
	r.mu.RUnlock()
	metrics.RegisteredAgents.Reset()
	for group, count := range counts {
		metrics.RegisteredAgents.WithLabelValues(group).Set(float64(count))
	}
}

// Get looks up a single agent by id.
func (r *Registry) Get(agentID string) (model.AgentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	return a, ok
}

// GetByGroup returns every agent belonging to group, in no particular
// order.
func (r *Registry) GetByGroup(group string) []model.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentInfo, 0)
	for _, a := range r.agents {
		if a.Group == group {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the total number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Groups returns the distinct group names currently represented.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, a := range r.agents {
		seen[a.Group] = struct{}{}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	return groups
}

// All returns a snapshot of every registered agent.
func (r *Registry) All() []model.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentInfo, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// IsHealthy reports the cached health of an agent, refreshing the cache
// with a live probe of its health endpoint when it has gone stale. An
// unknown agent or one without a health endpoint reports false.
func (r *Registry) IsHealthy(ctx context.Context, agentID string) bool {
	agent, ok := r.Get(agentID)
	if !ok || agent.HealthEndpoint == "" {
		return false
	}

	r.healthMu.Lock()
	entry, cached := r.health[agentID]
	fresh := cached && time.Since(entry.checkedAt) < r.healthTTL
	r.healthMu.Unlock()
	if fresh {
		return entry.healthy
	}

	healthy := r.probe(ctx, agent.HealthEndpoint)
	r.healthMu.Lock()
	r.health[agentID] = healthEntry{healthy: healthy, checkedAt: time.Now()}
	r.healthMu.Unlock()
	return healthy
}

// HealthSnapshot probes every registered agent concurrently and
// returns a map of agent id to health, bounding the wall-clock cost of a
// full sweep to the slowest single probe rather than their sum.
func (r *Registry) HealthSnapshot(ctx context.Context) map[string]bool {
	agents := r.All()
	snapshot := make(map[string]bool, len(agents))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for _, a := range agents {
		a := a
		g.Go(func() error {
			healthy := r.IsHealthy(gCtx, a.ID)
			mu.Lock()
			snapshot[a.ID] = healthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // IsHealthy never returns an error; probes simply report unhealthy

	return snapshot
}

func (r *Registry) probe(ctx context.Context, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		logger.DebugContext(ctx, "registry: health probe failed", "endpoint", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
