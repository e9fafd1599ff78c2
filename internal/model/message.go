package model

import "time"

// MessageType tags every bus-carried message for exhaustive dispatch at
// the subscriber boundary, replacing runtime string branching.
type MessageType string

const (
	MessageTypeRequest      MessageType = "request"
	MessageTypeResponse     MessageType = "response"
	MessageTypeNotification MessageType = "notification"
	MessageTypeHeartbeat    MessageType = "heartbeat"
)

// ServiceBusMessage is the internal wrapper around an envelope as it
// travels across the bus: broker metadata plus the decoded envelope and
// raw payload bytes.
type ServiceBusMessage struct {
	MessageID     string
	CorrelationID string
	MessageType   MessageType
	Envelope      *Envelope
	Payload       []byte
	Label         string // free-text subject, mirrors Service Bus "Subject"
	CreatedAt     time.Time
	ExpiresAt     time.Time
	RetryCount    int

	// Properties holds broker-side application properties used for
	// server-side filter evaluation (messageType, toAgent, fromAgent,
	// fromProxy, toProxy).
	Properties map[string]string
}

// ApplicationProperties derives the broker-side filterable properties from
// the message, independent of whatever Properties already holds.
func (m *ServiceBusMessage) ApplicationProperties() map[string]string {
	props := map[string]string{
		"messageType": string(m.MessageType),
	}
	if m.Envelope != nil {
		if m.Envelope.ToAgent != "" {
			props["toAgent"] = m.Envelope.ToAgent
		}
		if m.Envelope.FromAgent != "" {
			props["fromAgent"] = m.Envelope.FromAgent
		}
		if m.Envelope.FromProxy != "" {
			props["fromProxy"] = m.Envelope.FromProxy
		}
		if m.Envelope.ToProxy != "" {
			props["toProxy"] = m.Envelope.ToProxy
		}
	}
	return props
}
