// Package session manages application-level session state: short-lived
// stateful associations between an agent and a correlation id, bounded
// by TTL and persisted to disk so a restart does not silently drop
// in-flight conversations.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
)

const filePermissions = 0o600
const dirPermissions = 0o750

// Manager owns the set of live sessions, enforcing the configured TTL
// bounds and the per-agent session cap, and persisting state to storeDir.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*model.SessionInfo

	defaultTTL time.Duration
	maxTTL     time.Duration
	maxPerAgt  int
	storeDir   string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Manager from the proxy's session configuration and
// loads any sessions previously persisted to cfg.StoreDir.
func New(cfg model.SessionConfig) (*Manager, error) {
	m := &Manager{
		sessions:   make(map[string]*model.SessionInfo),
		defaultTTL: time.Duration(cfg.DefaultTTLSeconds) * time.Second,
		maxTTL:     time.Duration(cfg.MaxTTLSeconds) * time.Second,
		maxPerAgt:  cfg.MaxSessionsPerAgent,
		storeDir:   cfg.StoreDir,
		stopCh:     make(chan struct{}),
	}
	if m.storeDir != "" {
		if err := os.MkdirAll(m.storeDir, dirPermissions); err != nil {
			return nil, fmt.Errorf("session: create store dir: %w", err)
		}
		if err := m.loadAll(); err != nil {
			return nil, fmt.Errorf("session: load persisted sessions: %w", err)
		}
	}
	return m, nil
}

// Start launches the periodic expiry sweep at the configured interval.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupExpired()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the cleanup sweep.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Create starts a new session for agentID, clamping requestedTTL into
// [1, maxTTL] and defaulting to defaultTTL when requestedTTL is 0. It
// rejects the request if agentID already holds maxSessionsPerAgent
// sessions.
func (m *Manager) Create(agentID, correlationID string, requestedTTL time.Duration) (*model.SessionInfo, error) {
	ttl := requestedTTL
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	if m.maxTTL > 0 && ttl > m.maxTTL {
		ttl = m.maxTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxPerAgt > 0 {
		count := 0
		for _, s := range m.sessions {
			if s.AgentID == agentID {
				count++
			}
		}
		if count >= m.maxPerAgt {
			return nil, fmt.Errorf("session: agent %q already has %d sessions (limit %d)", agentID, count, m.maxPerAgt)
		}
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)
	s := &model.SessionInfo{
		SessionID:     uuid.NewString(),
		AgentID:       agentID,
		CorrelationID: correlationID,
		CreatedAt:     now,
		LastActivity:  now,
		ExpiresAt:     &expires,
	}
	m.sessions[s.SessionID] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	if err := m.persist(s); err != nil {
		logger.Warn("session: persist failed", "sessionId", s.SessionID, "error", err)
	}
	return s, nil
}

// Get returns the session by id, false if absent or expired.
func (m *Manager) Get(sessionID string) (*model.SessionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.IsExpired(time.Now()) {
		return nil, false
	}
	return s, true
}

// GetByCorrelationID finds the session matching a correlation id, if any.
func (m *Manager) GetByCorrelationID(correlationID string) (*model.SessionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.CorrelationID == correlationID && !s.IsExpired(time.Now()) {
			return s, true
		}
	}
	return nil, false
}

// Extend pushes sessionID's expiry out by ttl from now, clamped to
// maxTTL from creation, and bumps LastActivity.
func (m *Manager) Extend(sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session: %q not found", sessionID)
	}
	now := time.Now().UTC()
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	if m.maxTTL > 0 {
		if maxExpiry := s.CreatedAt.Add(m.maxTTL); now.Add(ttl).After(maxExpiry) {
			expires := maxExpiry
			s.ExpiresAt = &expires
			s.LastActivity = now
			return m.persist(s)
		}
	}
	expires := now.Add(ttl)
	s.ExpiresAt = &expires
	s.LastActivity = now
	return m.persist(s)
}

// Delete removes a session, including its persisted file.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	if m.storeDir != "" {
		_ = os.Remove(m.pathFor(sessionID))
	}
}

// List returns every live (non-expired) session.
func (m *Manager) List() []*model.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	out := make([]*model.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !s.IsExpired(now) {
			out = append(out, s)
		}
	}
	return out
}

// Stats summarizes the current session population.
type Stats struct {
	Total   int
	ByAgent map[string]int
}

// Stats reports the current live-session population grouped by agent.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	stats := Stats{ByAgent: make(map[string]int)}
	for _, s := range m.sessions {
		if s.IsExpired(now) {
			continue
		}
		stats.Total++
		stats.ByAgent[s.AgentID]++
	}
	return stats
}

// CleanupExpired removes every session whose TTL has elapsed, returning
// the count removed.
func (m *Manager) CleanupExpired() int {
	now := time.Now()
	m.mu.Lock()
	removed := make([]string, 0)
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			removed = append(removed, id)
			delete(m.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, id := range removed {
		if m.storeDir != "" {
			_ = os.Remove(m.pathFor(id))
		}
	}
	if len(removed) > 0 {
		logger.Debug("session: cleanup removed expired sessions", "count", len(removed))
	}
	return len(removed)
}

func (m *Manager) pathFor(sessionID string) string {
	return filepath.Join(m.storeDir, sessionID+".json")
}

// persist writes s to storeDir via a temp-file-then-rename so a crash
// mid-write never leaves a corrupt session file behind. It is a no-op
// when no storeDir was configured.
func (m *Manager) persist(s *model.SessionInfo) error {
	if m.storeDir == "" {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(m.storeDir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.pathFor(s.SessionID)); err != nil {
		return fmt.Errorf("session: rename into place: %w", err)
	}
	return nil
}

// loadAll reads every *.json file under storeDir back into memory,
// skipping (and logging) any file that fails to parse.
func (m *Manager) loadAll() error {
	entries, err := os.ReadDir(m.storeDir)
	if err != nil {
		return fmt.Errorf("read store dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(m.storeDir, entry.Name())
		data, err := os.ReadFile(path) //nolint:gosec // path built from a trusted directory listing
		if err != nil {
			logger.Warn("session: failed to read persisted session", "path", path, "error", err)
			continue
		}
		var s model.SessionInfo
		if err := json.Unmarshal(data, &s); err != nil {
			logger.Warn("session: failed to parse persisted session", "path", path, "error", err)
			continue
		}
		m.sessions[s.SessionID] = &s
	}
	return nil
}
