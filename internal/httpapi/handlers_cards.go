package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/piizei/a2a-proxy/internal/router"
	"github.com/piizei/a2a-proxy/internal/rpcerr"
)

// handleAgentCard fetches the target agent's own capability card —
// locally or across the bus, same as any other routed call — and
// rewrites its url field to point back through this proxy so downstream
// callers never need to know the agent's real address.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		writeRPCError(w, nil, http.StatusBadRequest, rpcerr.InvalidRequest, "agent id is required")
		return
	}

	resp, err := s.router.Route(r.Context(), router.Request{
		AgentID: agentID,
		Path:    "/.well-known/agent.json",
		Method:  http.MethodGet,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	var card AgentCard
	if err := json.Unmarshal(resp.Body, &card); err != nil {
		writeRPCError(w, nil, http.StatusBadGateway, rpcerr.InternalError, "upstream agent card was not valid JSON")
		return
	}
	card.URL = fmt.Sprintf("/agents/%s/v1", agentID)

	writeJSON(w, http.StatusOK, card)
}
