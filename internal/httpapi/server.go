// Package httpapi exposes the proxy's external HTTP surface: agent
// cards, the message-send entry point, session management, health and
// metrics, and (coordinator-only) topic administration.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/registry"
	"github.com/piizei/a2a-proxy/internal/router"
	"github.com/piizei/a2a-proxy/internal/rpcerr"
	"github.com/piizei/a2a-proxy/internal/session"
	"github.com/piizei/a2a-proxy/internal/topicmanager"
)

// defaultReadHeaderTimeout prevents Slowloris attacks against the
// proxy's public listener.
const defaultReadHeaderTimeout = 10 * time.Second

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCard sets the proxy's own agent card served at
// /.well-known/agent.json.
func WithCard(card AgentCard) ServerOption {
	return func(s *Server) { s.card = card }
}

// WithTopicManager wires the coordinator-only topic administration
// endpoints. Omitting it on a follower proxy is correct: those routes
// reply 403 regardless.
func WithTopicManager(tm *topicmanager.Manager, groups map[string]model.TopicGroupConfig) ServerOption {
	return func(s *Server) {
		s.topics = tm
		s.topicGroups = groups
	}
}

// Server is the proxy's HTTP listener.
type Server struct {
	proxyID       string
	isCoordinator bool
	port          int

	router   *router.Router
	registry *registry.Registry
	sessions *session.Manager

	card        AgentCard
	topics      *topicmanager.Manager
	topicGroups map[string]model.TopicGroupConfig

	httpSrv *http.Server
}

// New constructs a Server for proxyID, wiring it to the router,
// registry, and session manager it will delegate to.
func New(proxyID string, isCoordinator bool, port int, r *router.Router, reg *registry.Registry, sessions *session.Manager, opts ...ServerOption) *Server {
	s := &Server{
		proxyID:       proxyID,
		isCoordinator: isCoordinator,
		port:          port,
		router:        r,
		registry:      reg,
		sessions:      sessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the proxy's full external HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /.well-known/agent.json", s.handleProxyCard)
	mux.HandleFunc("GET /agents/{id}/.well-known/agent.json", s.handleAgentCard)
	mux.HandleFunc("GET /{id}/.well-known/agent.json", s.handleAgentCard)
	mux.HandleFunc("POST /agents/{id}/v1/messages:send", s.handleMessageSend)
	mux.HandleFunc("/agents/{id}/v1/{path...}", s.handleAgentProxy)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/stats", s.handleSessionStats)
	mux.HandleFunc("GET /sessions/correlation/{id}", s.handleGetSessionByCorrelation)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PUT /sessions/{id}/extend", s.handleExtendSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("GET /admin/topics", s.handleListTopics)
	mux.HandleFunc("GET /admin/topics/groups", s.handleTopicGroups)
	mux.HandleFunc("POST /admin/topics/{group}", s.handleEnsureTopic)
	mux.HandleFunc("POST /admin/topics/{group}/validate", s.handleValidateTopic)
	mux.HandleFunc("PUT /admin/topics/{group}/recreate", s.handleRecreateTopic)
	mux.HandleFunc("DELETE /admin/topics/{group}", s.handleDeleteTopic)

	mux.HandleFunc("GET /health", s.handleHealthz)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// ListenAndServe starts the HTTP server on the configured port. Every
// request is wrapped in an otelhttp span so ingress latency and status
// codes show up in the same trace as the bus spans the router and
// subscriber open downstream.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           otelhttp.NewHandler(s.Handler(), "a2a-proxy"),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully drains the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleProxyCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"proxyId":     s.proxyID,
		"agents":      s.registry.Count(),
		"agentHealth": s.registry.HealthSnapshot(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRPCError(w http.ResponseWriter, id any, status int, code rpcerr.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: int(code), Message: message},
	})
}

func writeErr(w http.ResponseWriter, err error) {
	var rErr *rpcerr.Error
	if !errors.As(err, &rErr) {
		rErr = rpcerr.New("httpapi", "unknown", rpcerr.InternalError, err)
	}
	logger.Error("httpapi: request failed", "component", rErr.Component, "operation", rErr.Operation, "error", rErr.Cause)
	writeRPCError(w, nil, rErr.HTTPStatus(), rErr.Code, rErr.Message())
}
