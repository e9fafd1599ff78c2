package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/piizei/a2a-proxy/internal/rpcerr"
)

// createSessionRequest is the body accepted by POST /sessions.
type createSessionRequest struct {
	AgentID       string `json:"agentId"`
	CorrelationID string `json:"correlationId"`
	TTLSeconds    int    `json:"ttlSeconds"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, http.StatusBadRequest, rpcerr.ParseError, "invalid session request body")
		return
	}
	if req.AgentID == "" {
		writeRPCError(w, nil, http.StatusBadRequest, rpcerr.InvalidParams, "agentId is required")
		return
	}

	sess, err := s.sessions.Create(req.AgentID, req.CorrelationID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeRPCError(w, nil, http.StatusConflict, rpcerr.InvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeRPCError(w, nil, http.StatusNotFound, rpcerr.TaskNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// extendSessionRequest is the body accepted by PUT /sessions/{id}/extend.
type extendSessionRequest struct {
	TTLSeconds int `json:"ttlSeconds"`
}

func (s *Server) handleExtendSession(w http.ResponseWriter, r *http.Request) {
	var req extendSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	id := r.PathValue("id")
	if err := s.sessions.Extend(id, time.Duration(req.TTLSeconds)*time.Second); err != nil {
		writeRPCError(w, nil, http.StatusNotFound, rpcerr.TaskNotFound, err.Error())
		return
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeRPCError(w, nil, http.StatusNotFound, rpcerr.TaskNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.List(),
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

func (s *Server) handleGetSessionByCorrelation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.GetByCorrelationID(r.PathValue("id"))
	if !ok {
		writeRPCError(w, nil, http.StatusNotFound, rpcerr.TaskNotFound, "no session for that correlation id")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
