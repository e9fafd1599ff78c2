// Package bus wraps Azure Service Bus messaging: connection lifecycle,
// publishing, and the supervised subscription receive loop. Nothing
// above this package talks to azservicebus directly.
package bus

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/model"
)

// Client owns the azservicebus connection and hands out senders and
// receivers to the publisher and subscriber layers.
type Client struct {
	sbClient *azservicebus.Client
	senders  map[string]*azservicebus.Sender
}

// Connect establishes a Client for the given namespace using cfg's
// credential selection (connection string, client secret, managed
// identity, or the default Azure credential chain).
func Connect(ctx context.Context, namespace string, cfg model.BusCredentialConfig) (*Client, error) {
	var sbClient *azservicebus.Client
	var err error

	if cfg.ConnectionString != "" {
		sbClient, err = azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		tokenCred, credErr := resolveCredential(cfg)
		if credErr != nil {
			return nil, credErr
		}
		sbClient, err = azservicebus.NewClient(namespace, tokenCred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("bus: connect to %s: %w", namespace, err)
	}

	logger.Info("bus: connected", "namespace", namespace)
	return &Client{
		sbClient: sbClient,
		senders:  make(map[string]*azservicebus.Sender),
	}, nil
}

// Close shuts down every sender and the underlying connection.
func (c *Client) Close(ctx context.Context) error {
	for topic, sender := range c.senders {
		if err := sender.Close(ctx); err != nil {
			logger.Warn("bus: error closing sender", "topic", topic, "error", err)
		}
	}
	return c.sbClient.Close(ctx)
}

// SenderFor returns a cached sender for topic, creating one on first use.
func (c *Client) SenderFor(topic string) (*azservicebus.Sender, error) {
	if s, ok := c.senders[topic]; ok {
		return s, nil
	}
	sender, err := c.sbClient.NewSender(topic, nil)
	if err != nil {
		return nil, fmt.Errorf("bus: create sender for %s: %w", topic, err)
	}
	c.senders[topic] = sender
	return sender, nil
}

// ReceiverForSubscription creates a receiver bound to a single
// topic/subscription pair in peek-lock mode.
func (c *Client) ReceiverForSubscription(topic, subscription string) (*azservicebus.Receiver, error) {
	receiver, err := c.sbClient.NewReceiverForSubscription(topic, subscription, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: create receiver for %s/%s: %w", topic, subscription, err)
	}
	return receiver, nil
}
