package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/piizei/a2a-proxy/internal/router"
	"github.com/piizei/a2a-proxy/internal/rpcerr"
)

// handleMessageSend is the proxy's primary dispatch entry point: it
// reads the raw request body and forwards it, unmodified, to the target
// agent — locally over HTTP or remotely over the bus — and mirrors back
// whatever that agent returned.
func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	s.proxyRequest(w, r, "/v1/messages:send")
}

// handleAgentProxy forwards any other /agents/{id}/v1/{path...} call to
// the target agent, preserving method and sub-path. This is how
// streaming and task-management endpoints defined by the target agent's
// own card pass through the proxy untouched.
func (s *Server) handleAgentProxy(w http.ResponseWriter, r *http.Request) {
	s.proxyRequest(w, r, "/v1/"+r.PathValue("path"))
}

func (s *Server) proxyRequest(w http.ResponseWriter, r *http.Request, path string) {
	agentID := r.PathValue("id")
	if agentID == "" {
		writeRPCError(w, nil, http.StatusBadRequest, rpcerr.InvalidRequest, "agent id is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPCError(w, nil, http.StatusBadRequest, rpcerr.ParseError, "failed to read request body")
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	correlationID := r.Header.Get("X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp, err := s.router.Route(r.Context(), router.Request{
		AgentID:       agentID,
		Path:          path,
		Method:        r.Method,
		Body:          body,
		Headers:       headers,
		CorrelationID: correlationID,
	})
	if err != nil {
		var rErr *rpcerr.Error
		if errors.As(err, &rErr) {
			writeRPCError(w, nil, rErr.HTTPStatus(), rErr.Code, rErr.Message())
			return
		}
		writeErr(w, err)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("X-Correlation-Id", correlationID)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
