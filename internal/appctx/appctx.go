// Package appctx assembles every subsystem into one explicitly
// constructed AppContext, threaded through the proxy instead of relying
// on package-level globals.
package appctx

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"

	"github.com/piizei/a2a-proxy/internal/bus"
	"github.com/piizei/a2a-proxy/internal/correlator"
	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/publisher"
	"github.com/piizei/a2a-proxy/internal/registry"
	"github.com/piizei/a2a-proxy/internal/router"
	"github.com/piizei/a2a-proxy/internal/session"
	"github.com/piizei/a2a-proxy/internal/subscriber"
	"github.com/piizei/a2a-proxy/internal/topicmanager"
)

// AppContext wires every subsystem for a single proxy process.
type AppContext struct {
	Config *model.ProxyConfig

	Bus          *bus.Client
	Admin        *admin.Client
	Registry     *registry.Registry
	Sessions     *session.Manager
	Correlator   *correlator.Correlator
	Publisher    *publisher.Publisher
	Subscriber   *subscriber.Orchestrator
	Router       *router.Router
	TopicManager *topicmanager.Manager
}

// Build constructs every subsystem from cfg and connects to the bus.
// Callers are responsible for invoking Start and, eventually, Close.
func Build(ctx context.Context, cfg *model.ProxyConfig) (*AppContext, error) {
	busClient, err := bus.Connect(ctx, cfg.BusNamespace, cfg.BusCredential)
	if err != nil {
		return nil, fmt.Errorf("appctx: connect to bus: %w", err)
	}

	adminClient, err := bus.NewAdminClient(cfg.BusNamespace, cfg.BusCredential)
	if err != nil {
		return nil, fmt.Errorf("appctx: connect admin client: %w", err)
	}

	reg := registry.New()
	if err := reg.LoadFromConfig(cfg.AgentRegistry); err != nil {
		return nil, fmt.Errorf("appctx: load agent registry: %w", err)
	}

	sessions, err := session.New(cfg.Sessions)
	if err != nil {
		return nil, fmt.Errorf("appctx: build session manager: %w", err)
	}

	corr := correlator.New(correlator.DefaultSweepInterval)
	pub := publisher.New(busClient)
	sub := subscriber.New(busClient, adminClient)
	r := router.New(cfg.ID, reg, pub, corr)

	var tm *topicmanager.Manager
	if cfg.IsCoordinator() {
		tm = topicmanager.New(adminClient)
	}

	return &AppContext{
		Config:       cfg,
		Bus:          busClient,
		Admin:        adminClient,
		Registry:     reg,
		Sessions:     sessions,
		Correlator:   corr,
		Publisher:    pub,
		Subscriber:   sub,
		Router:       r,
		TopicManager: tm,
	}, nil
}

// Start launches the background workers: the correlator sweeper, the
// session cleanup sweep, and a supervised receive loop per configured
// subscription.
func (a *AppContext) Start(ctx context.Context) error {
	a.Correlator.Start()
	a.Sessions.Start(time.Duration(a.Config.Sessions.CleanupIntervalSeconds) * time.Second)

	if a.Config.IsCoordinator() && a.TopicManager != nil {
		if err := a.TopicManager.EnsureTopicsExist(ctx, a.Config.AgentGroups); err != nil {
			return fmt.Errorf("appctx: ensure topics: %w", err)
		}
	}

	for _, sc := range a.Config.Subscriptions {
		sc := sc
		requestsTopic := topicmanager.RequestsTopic(sc.Group)
		subName := subscriber.SubscriptionName(a.Config.ID, sc.Group)
		if err := a.Subscriber.EnsureSubscription(ctx, requestsTopic, subName, sc.Filter); err != nil {
			return fmt.Errorf("appctx: ensure subscription for %s: %w", sc.Group, err)
		}

		go func() {
			err := a.Subscriber.Run(ctx, requestsTopic, subName, subscriber.Handlers{
				OnRequest:  a.handleInboundRequest,
				OnResponse: a.handleInboundResponse,
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("appctx: subscription loop exited", "group", sc.Group, "error", err)
			}
		}()
	}

	responsesSubName := subscriber.SubscriptionName(a.Config.ID, "responses")
	responsesFilter := fmt.Sprintf("toProxy = '%s'", a.Config.ID)
	for group := range a.Config.AgentGroups {
		responsesTopic := topicmanager.ResponsesTopic(group)
		if err := a.Subscriber.EnsureSubscription(ctx, responsesTopic, responsesSubName, responsesFilter); err != nil {
			return fmt.Errorf("appctx: ensure responses subscription for %s: %w", group, err)
		}
		group := group
		go func() {
			err := a.Subscriber.Run(ctx, topicmanager.ResponsesTopic(group), responsesSubName, subscriber.Handlers{
				OnResponse: a.handleInboundResponse,
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("appctx: responses subscription loop exited", "group", group, "error", err)
			}
		}()
	}

	return nil
}

// Close stops background workers and the bus connection.
func (a *AppContext) Close(ctx context.Context) error {
	a.Correlator.Stop()
	a.Sessions.Stop()
	return a.Bus.Close(ctx)
}

func (a *AppContext) handleInboundResponse(ctx context.Context, env *model.Envelope) error {
	a.Correlator.HandleResponse(env.CorrelationID, env)
	return nil
}

func (a *AppContext) handleInboundRequest(ctx context.Context, env *model.Envelope) error {
	agent, ok := a.Registry.Get(env.ToAgent)
	if !ok {
		return fmt.Errorf("appctx: unknown target agent %q", env.ToAgent)
	}
	if !agent.IsLocalTo(a.Config.ID) {
		return fmt.Errorf("appctx: agent %q is not local to this proxy", env.ToAgent)
	}

	resp, err := a.Router.Route(ctx, router.Request{
		AgentID:       env.ToAgent,
		Path:          env.Path,
		Method:        env.Method,
		Body:          env.Body,
		Headers:       env.Headers,
		CorrelationID: env.CorrelationID,
	})
	if err != nil {
		return err
	}

	respEnv, err := model.NewEnvelope(a.Config.ID, env.FromAgent, env.CorrelationID, env.TTL)
	if err != nil {
		return err
	}
	respEnv.ToProxy = env.FromProxy
	respEnv.StatusCode = resp.StatusCode
	respEnv.Body = resp.Body
	respEnv.Headers = resp.Headers
	respEnv.SessionID = env.SessionID
	if resp.IsSSE {
		respEnv.IsSSE = true
		respEnv.Protocol = model.ProtocolSSE
	} else {
		respEnv.Protocol = model.ProtocolHTTP
	}

	return a.Publisher.PublishResponse(ctx, agent.Group, respEnv)
}
