// Package router implements the proxy's core dispatch decision: for a
// given target agent, call it directly over HTTP when it is hosted
// locally, or publish a request envelope onto the bus and await the
// matching response when it is hosted by another proxy.
package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piizei/a2a-proxy/internal/correlator"
	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/publisher"
	"github.com/piizei/a2a-proxy/internal/registry"
	"github.com/piizei/a2a-proxy/internal/rpcerr"
	"github.com/piizei/a2a-proxy/internal/tracing"
)

// DefaultRemoteTimeout bounds how long Route waits for a remote agent's
// response to arrive back over the bus.
const DefaultRemoteTimeout = 30 * time.Second

// Router decides, per call, whether a target agent is reachable
// directly or only via the bus, and executes the call either way.
type Router struct {
	proxyID    string
	registry   *registry.Registry
	publisher  *publisher.Publisher
	correlator *correlator.Correlator
	httpClient *http.Client
	timeout    time.Duration
}

// New constructs a Router for proxyID.
func New(proxyID string, reg *registry.Registry, pub *publisher.Publisher, corr *correlator.Correlator) *Router {
	return &Router{
		proxyID:    proxyID,
		registry:   reg,
		publisher:  pub,
		correlator: corr,
		httpClient: &http.Client{Timeout: DefaultRemoteTimeout},
		timeout:    DefaultRemoteTimeout,
	}
}

// Request is one inbound call awaiting dispatch to agentID.
type Request struct {
	AgentID       string
	Path          string
	Method        string
	Body          []byte
	Headers       map[string]string
	CorrelationID string // generated when empty
}

// Response is the normalized outcome of a routed call, regardless of
// whether it was served locally or remotely.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	IsSSE      bool
}

// Route dispatches req to its target agent, either over HTTP directly
// (local) or by publishing onto the bus and awaiting the matching
// response (remote), per the agent registry's locality for this proxy.
func (r *Router) Route(ctx context.Context, req Request) (*Response, error) {
	agent, ok := r.registry.Get(req.AgentID)
	if !ok {
		return nil, rpcerr.New("router", "route", rpcerr.AgentNotFound, fmt.Errorf("agent %q not found", req.AgentID))
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = logger.WithCorrelationID(ctx, correlationID)

	locality := "remote"
	if agent.IsLocalTo(r.proxyID) {
		locality = "local"
	}

	ctx, span := tracing.StartRouteSpan(ctx, req.AgentID, locality)

	start := time.Now()
	var resp *Response
	var err error
	if locality == "local" {
		resp, err = r.routeLocal(ctx, agent, req, correlationID)
	} else {
		resp, err = r.routeRemote(ctx, agent, req, correlationID)
	}
	metrics.RouteDuration.WithLabelValues(locality).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(req.Path, statusClass(resp, err)).Inc()
	tracing.EndWithError(span, err)
	return resp, err
}

// statusClass buckets a routed call's outcome for the requests_total
// metric: "2xx"/"4xx"/"5xx" when a response came back, "error" when the
// call never produced one.
func statusClass(resp *Response, err error) string {
	if resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode/100) + "xx"
}

func (r *Router) routeLocal(ctx context.Context, agent model.AgentInfo, req Request, correlationID string) (*Response, error) {
	url := agent.FQDN + req.Path
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, rpcerr.New("router", "routeLocal", rpcerr.InternalError, err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("X-Correlation-Id", correlationID)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, rpcerr.New("router", "routeLocal", rpcerr.AgentUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rpcerr.New("router", "routeLocal", rpcerr.InternalError, err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	isSSE := strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
	return &Response{StatusCode: resp.StatusCode, Body: respBody, Headers: headers, IsSSE: isSSE}, nil
}

func (r *Router) routeRemote(ctx context.Context, agent model.AgentInfo, req Request, correlationID string) (*Response, error) {
	env, err := model.NewEnvelope(r.proxyID, agent.ID, correlationID, int(r.timeout.Seconds()))
	if err != nil {
		return nil, rpcerr.New("router", "routeRemote", rpcerr.InvalidRequest, err)
	}
	env.ToProxy = agent.ProxyID
	env.Path = req.Path
	env.Method = req.Method
	env.Body = req.Body
	env.Headers = req.Headers
	env.Protocol = model.ProtocolHTTP

	if err := r.correlator.Register(correlationID, r.timeout); err != nil {
		return nil, rpcerr.New("router", "routeRemote", rpcerr.InternalError, err)
	}

	if err := r.publisher.PublishRequest(ctx, agent.Group, env); err != nil {
		r.correlator.Cancel(correlationID)
		return nil, rpcerr.New("router", "routeRemote", rpcerr.Timeout, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	respEnv, err := r.correlator.Wait(waitCtx, correlationID)
	if err != nil {
		return nil, rpcerr.New("router", "routeRemote", rpcerr.Timeout, err)
	}

	return &Response{
		StatusCode: respEnv.StatusCode,
		Body:       respEnv.Body,
		Headers:    respEnv.Headers,
		IsSSE:      respEnv.IsSSE,
	}, nil
}
