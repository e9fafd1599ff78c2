package bus

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/cenkalti/backoff/v4"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
)

// MaxReceiveRestarts bounds how many times the supervised receive loop
// will restart a failed subscription before giving up on it entirely.
const MaxReceiveRestarts = 5

// maxBatchSize is how many messages ReceiveMessages asks for per call.
const maxBatchSize = 16

// Handler processes one received message. Returning an error abandons
// the message, leaving it for broker redelivery (and eventual
// dead-lettering once the broker's own max-delivery-count is reached).
type Handler func(ctx context.Context, msg *azservicebus.ReceivedMessage) error

// Supervise runs a receive loop against topic/subscription until ctx is
// canceled, restarting on failure with exponential backoff
// (5 * 2^(n-1), capped) up to MaxReceiveRestarts times. It blocks until
// ctx is canceled or the restart budget is exhausted.
func (c *Client) Supervise(ctx context.Context, topic, subscription string, handler Handler) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.Multiplier = 2
	bo.MaxInterval = 80 * time.Second
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	bo.Reset()

	restarts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.receiveLoop(ctx, topic, subscription, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		restarts++
		metrics.BusReceiveRestarts.WithLabelValues(subscription).Inc()
		if restarts > MaxReceiveRestarts {
			logger.Error("bus: subscription exhausted restart budget, giving up",
				"topic", topic, "subscription", subscription, "restarts", restarts, "error", err)
			return err
		}

		wait := bo.NextBackOff()
		logger.Warn("bus: receive loop failed, restarting",
			"topic", topic, "subscription", subscription, "attempt", restarts, "wait", wait, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context, topic, subscription string, handler Handler) error {
	receiver, err := c.ReceiverForSubscription(topic, subscription)
	if err != nil {
		return err
	}
	defer receiver.Close(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := receiver.ReceiveMessages(ctx, maxBatchSize, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		for _, msg := range messages {
			if hErr := handler(ctx, msg); hErr != nil {
				logger.WarnContext(ctx, "bus: handler failed, abandoning message",
					"subscription", subscription, "messageId", msg.MessageID, "error", hErr)
				if abErr := receiver.AbandonMessage(ctx, msg, nil); abErr != nil {
					logger.Error("bus: failed to abandon message", "error", abErr)
				}
				continue
			}
			if cErr := receiver.CompleteMessage(ctx, msg, nil); cErr != nil {
				logger.Error("bus: failed to complete message", "error", cErr)
			}
		}
	}
}
