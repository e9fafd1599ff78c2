// Package subscriber orchestrates per-group and per-agent bus
// subscriptions: provisioning them with server-side filters, then
// dispatching received messages by type to the caller's handlers.
package subscriber

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"

	"github.com/piizei/a2a-proxy/internal/bus"
	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/tracing"
)

// Handlers are the callbacks invoked for each dispatched message type.
// A non-nil error abandons the message for broker redelivery.
type Handlers struct {
	OnRequest      func(ctx context.Context, env *model.Envelope) error
	OnResponse     func(ctx context.Context, env *model.Envelope) error
	OnNotification func(ctx context.Context, env *model.Envelope) error
	OnHeartbeat    func(ctx context.Context, env *model.Envelope) error
}

// Orchestrator provisions subscriptions and runs their supervised
// receive loops.
type Orchestrator struct {
	bus   *bus.Client
	admin *admin.Client
}

// New wraps a connected bus client and the admin client used for
// subscription provisioning.
func New(busClient *bus.Client, adminClient *admin.Client) *Orchestrator {
	return &Orchestrator{bus: busClient, admin: adminClient}
}

// SubscriptionName derives the deterministic name for a proxy's
// group-wide subscription to a topic: the name combines the proxy id and
// the group, so each proxy gets its own subscription and a restart
// reattaches to the same durable subscription instead of leaking a new
// one.
func SubscriptionName(proxyID, group string) string {
	return fmt.Sprintf("sub-%s-%s", proxyID, group)
}

// EnsureSubscription creates subscription on topic with the given SQL-92
// filter predicate if it does not already exist.
func (o *Orchestrator) EnsureSubscription(ctx context.Context, topic, subscription, filter string) error {
	if _, err := o.admin.GetSubscription(ctx, topic, subscription, nil); err == nil {
		return nil
	}

	if _, err := o.admin.CreateSubscription(ctx, topic, subscription, nil); err != nil {
		return fmt.Errorf("subscriber: create subscription %s/%s: %w", topic, subscription, err)
	}

	if filter != "" {
		if _, err := o.admin.CreateRule(ctx, topic, subscription, "default", &admin.CreateRuleOptions{
			Filter: &admin.SQLFilter{Expression: filter},
		}); err != nil {
			return fmt.Errorf("subscriber: install filter on %s/%s: %w", topic, subscription, err)
		}
	}
	logger.Info("subscriber: provisioned subscription", "topic", topic, "subscription", subscription)
	return nil
}

// Run starts the supervised receive loop for topic/subscription,
// decoding each message into an Envelope and dispatching it by
// MessageType. It blocks until ctx is canceled or the restart budget in
// bus.Client.Supervise is exhausted.
func (o *Orchestrator) Run(ctx context.Context, topic, subscription string, handlers Handlers) error {
	ctx = logger.WithSubscription(ctx, subscription)
	return o.bus.Supervise(ctx, topic, subscription, func(ctx context.Context, msg *azservicebus.ReceivedMessage) error {
		return dispatch(ctx, topic, msg, handlers)
	})
}

func dispatch(ctx context.Context, topic string, msg *azservicebus.ReceivedMessage, handlers Handlers) (err error) {
	ctx, span := tracing.StartBusSpan(ctx, "receive", topic)
	defer func() { tracing.EndWithError(span, err) }()

	env, err := model.DecodeEnvelope(msg.Body)
	if err != nil {
		return fmt.Errorf("subscriber: decode envelope: %w", err)
	}

	msgType := model.MessageType(stringProp(msg.ApplicationProperties, "messageType"))
	ctx = logger.WithCorrelationID(ctx, env.CorrelationID)

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.BusMessagesReceived.WithLabelValues(string(msgType), outcome).Inc()
	}()

	switch msgType {
	case model.MessageTypeRequest:
		if handlers.OnRequest == nil {
			return nil
		}
		return handlers.OnRequest(ctx, env)
	case model.MessageTypeResponse:
		if handlers.OnResponse == nil {
			return nil
		}
		return handlers.OnResponse(ctx, env)
	case model.MessageTypeNotification:
		if handlers.OnNotification == nil {
			return nil
		}
		return handlers.OnNotification(ctx, env)
	case model.MessageTypeHeartbeat:
		if handlers.OnHeartbeat == nil {
			return nil
		}
		return handlers.OnHeartbeat(ctx, env)
	default:
		logger.WarnContext(ctx, "subscriber: unknown message type, dropping", "messageType", msgType)
		return nil
	}
}

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
