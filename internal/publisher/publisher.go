// Package publisher sends envelopes onto the bus as properly
// addressed, filterable Service Bus messages.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/piizei/a2a-proxy/internal/bus"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/topicmanager"
	"github.com/piizei/a2a-proxy/internal/tracing"
)

// Publisher sends request, response, and notification envelopes onto
// their respective topics.
type Publisher struct {
	client  *bus.Client
	limiter *rate.Limiter // nil means unthrottled
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRateLimit throttles outbound publishes to limit messages per
// second with the given burst allowance. Unset, a Publisher never
// throttles — most deployments rely on the namespace's own quota instead.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(p *Publisher) { p.limiter = rate.NewLimiter(limit, burst) }
}

// New wraps a connected bus client.
func New(client *bus.Client, opts ...Option) *Publisher {
	p := &Publisher{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishRequest sends env to the given group's requests topic,
// session-keyed by its correlation id so every response for the same
// exchange lands in FIFO order relative to its request.
func (p *Publisher) PublishRequest(ctx context.Context, group string, env *model.Envelope) error {
	return p.publish(ctx, topicmanager.RequestsTopic(group), model.MessageTypeRequest, env)
}

// PublishResponse sends env to the given group's responses topic.
func (p *Publisher) PublishResponse(ctx context.Context, group string, env *model.Envelope) error {
	return p.publish(ctx, topicmanager.ResponsesTopic(group), model.MessageTypeResponse, env)
}

// PublishNotification sends env to the shared notifications topic. Like
// requests and responses, notifications are session-keyed by
// correlation id so a subscriber following up on a prior exchange sees
// them in order.
func (p *Publisher) PublishNotification(ctx context.Context, env *model.Envelope) error {
	return p.publish(ctx, topicmanager.NotificationsTopic, model.MessageTypeNotification, env)
}

func (p *Publisher) publish(ctx context.Context, topic string, msgType model.MessageType, env *model.Envelope) (err error) {
	ctx, span := tracing.StartBusSpan(ctx, "publish", topic)
	defer func() { tracing.EndWithError(span, err) }()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("publisher: rate limit wait: %w", err)
		}
	}

	sender, err := p.client.SenderFor(topic)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("publisher: marshal envelope: %w", err)
	}

	sbMsg := &model.ServiceBusMessage{
		MessageID:     uuid.NewString(),
		CorrelationID: env.CorrelationID,
		MessageType:   msgType,
		Envelope:      env,
		Payload:       payload,
		Label:         string(msgType),
	}

	sessionID := env.SessionID
	if sessionID == "" {
		sessionID = env.CorrelationID
	}

	asbMsg := &azservicebus.Message{
		MessageID:             &sbMsg.MessageID,
		CorrelationID:         &sbMsg.CorrelationID,
		Body:                  sbMsg.Payload,
		Subject:               &sbMsg.Label,
		SessionID:             &sessionID,
		ApplicationProperties: toAnyMap(sbMsg.ApplicationProperties()),
		TimeToLive:            durationFromTTL(env.TTL),
	}

	if err := sender.SendMessage(ctx, asbMsg, nil); err != nil {
		return fmt.Errorf("publisher: send to %s: %w", topic, err)
	}
	metrics.BusMessagesPublished.WithLabelValues(string(msgType)).Inc()
	return nil
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
