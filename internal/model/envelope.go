package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Protocol identifies the wire protocol carried inside an envelope's body.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolSSE  Protocol = "sse"
)

// DefaultTTLSeconds is used when an envelope is constructed without an
// explicit TTL.
const DefaultTTLSeconds = 3600

// Envelope is the routing and metadata header accompanying every
// bus-borne message.
//
// Per design note: the envelope does NOT carry a group field. The
// publisher obtains the group from an agent registry lookup, never from
// the envelope itself.
type Envelope struct {
	FromProxy string `json:"fromProxy"`
	ToProxy   string `json:"toProxy,omitempty"`
	FromAgent string `json:"fromAgent,omitempty"`
	ToAgent   string `json:"toAgent"`

	CorrelationID string   `json:"correlationId"`
	Path          string   `json:"path,omitempty"`
	Method        string   `json:"method,omitempty"`
	Protocol      Protocol `json:"protocol,omitempty"`

	Body        []byte            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`

	SessionID string `json:"sessionId,omitempty"`
	Sequence  *int64 `json:"sequence,omitempty"`

	IsSSE    bool   `json:"isSSE,omitempty"`
	SSEEvent string `json:"sseEvent,omitempty"`
	SSEID    string `json:"sseId,omitempty"`
	SSERetry int    `json:"sseRetry,omitempty"`

	StatusCode int `json:"statusCode,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	TTL       int       `json:"ttl"`
}

// wireEnvelope mirrors Envelope but with an optional TTL, letting the
// decoder tell "unset" (use default) apart from an explicit non-positive
// value (reject). It also carries the json.Decoder.DisallowUnknownFields
// strict-schema behavior used by DecodeEnvelope.
type wireEnvelope struct {
	FromProxy string   `json:"fromProxy"`
	ToProxy   string   `json:"toProxy,omitempty"`
	FromAgent string   `json:"fromAgent,omitempty"`
	ToAgent   string   `json:"toAgent"`

	CorrelationID string   `json:"correlationId"`
	Path          string   `json:"path,omitempty"`
	Method        string   `json:"method,omitempty"`
	Protocol      Protocol `json:"protocol,omitempty"`

	Body        []byte            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`

	SessionID string `json:"sessionId,omitempty"`
	Sequence  *int64 `json:"sequence,omitempty"`

	IsSSE    bool   `json:"isSSE,omitempty"`
	SSEEvent string `json:"sseEvent,omitempty"`
	SSEID    string `json:"sseId,omitempty"`
	SSERetry int    `json:"sseRetry,omitempty"`

	StatusCode int `json:"statusCode,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
	TTL       *int      `json:"ttl,omitempty"`
}

// DecodeEnvelope parses the strict wire schema: unknown fields are
// rejected, method defaults to POST, TTL defaults to DefaultTTLSeconds
// when omitted, and an explicit non-positive TTL is rejected at
// construction.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireEnvelope
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("model: decode envelope: %w", err)
	}

	e := &Envelope{
		FromProxy:     w.FromProxy,
		ToProxy:       w.ToProxy,
		FromAgent:     w.FromAgent,
		ToAgent:       w.ToAgent,
		CorrelationID: w.CorrelationID,
		Path:          w.Path,
		Method:        w.Method,
		Protocol:      w.Protocol,
		Body:          w.Body,
		Headers:       w.Headers,
		QueryParams:   w.QueryParams,
		SessionID:     w.SessionID,
		Sequence:      w.Sequence,
		IsSSE:         w.IsSSE,
		SSEEvent:      w.SSEEvent,
		SSEID:         w.SSEID,
		SSERetry:      w.SSERetry,
		StatusCode:    w.StatusCode,
		Timestamp:     w.Timestamp,
	}

	if w.TTL == nil {
		e.TTL = DefaultTTLSeconds
	} else {
		if *w.TTL <= 0 {
			return nil, fmt.Errorf("model: envelope: ttl must be positive, got %d", *w.TTL)
		}
		e.TTL = *w.TTL
	}

	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEnvelope constructs an envelope with defaults applied (method POST,
// ttl DefaultTTLSeconds when ttlSeconds is 0, timestamp now) and validates
// it before returning.
func NewEnvelope(fromProxy, toAgent, correlationID string, ttlSeconds int) (*Envelope, error) {
	e := &Envelope{
		FromProxy:     fromProxy,
		ToAgent:       toAgent,
		CorrelationID: correlationID,
		TTL:           ttlSeconds,
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate enforces construction-time invariants: fromProxy, toAgent, and
// correlationId are required, and TTL must be strictly positive.
func (e *Envelope) Validate() error {
	if e.FromProxy == "" {
		return fmt.Errorf("model: envelope: fromProxy is required")
	}
	if e.ToAgent == "" {
		return fmt.Errorf("model: envelope: toAgent is required")
	}
	if e.CorrelationID == "" {
		return fmt.Errorf("model: envelope: correlationId is required")
	}
	if e.TTL <= 0 {
		return fmt.Errorf("model: envelope: ttl must be positive, got %d", e.TTL)
	}
	return nil
}

// Normalize fills in defaults: method defaults to POST, ttl defaults to
// DefaultTTLSeconds when zero, and timestamp defaults to now (UTC) when
// zero. It never overrides an explicit negative TTL — that is caught by
// Validate.
func (e *Envelope) Normalize() {
	if e.Method == "" {
		e.Method = "POST"
	}
	if e.TTL == 0 {
		e.TTL = DefaultTTLSeconds
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}
