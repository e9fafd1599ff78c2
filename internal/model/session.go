package model

import "time"

// SessionInfo is an application-level, TTL-bounded stateful association.
// It is unrelated to a bus session (the broker's FIFO-ordering construct).
type SessionInfo struct {
	SessionID     string            `json:"sessionId"`
	AgentID       string            `json:"agentId"`
	CorrelationID string            `json:"correlationId,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastActivity  time.Time         `json:"lastActivity"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsExpired reports whether the session's expiresAt has passed as of now.
// A session with expiresAt <= now is expired and must not be touched.
func (s *SessionInfo) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
