package httpapi

import (
	"net/http"

	"github.com/piizei/a2a-proxy/internal/model"
	"github.com/piizei/a2a-proxy/internal/rpcerr"
	"github.com/piizei/a2a-proxy/internal/topicmanager"
)

// requireCoordinator rejects the request unless this proxy owns topic
// lifecycle management, returning true when the handler should continue.
func (s *Server) requireCoordinator(w http.ResponseWriter) bool {
	if !s.isCoordinator || s.topics == nil {
		writeRPCError(w, nil, http.StatusForbidden, rpcerr.UnsupportedOperation, "topic administration is coordinator-only")
		return false
	}
	return true
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": topicmanager.ListManagedTopics(s.topicGroups),
	})
}

func (s *Server) handleEnsureTopic(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	group := r.PathValue("group")
	cfg, ok := s.topicGroups[group]
	if !ok {
		cfg = model.TopicGroupConfig{Name: group}
	}
	if err := s.topics.EnsureTopicsExist(r.Context(), map[string]model.TopicGroupConfig{group: cfg}); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requestsTopic":  topicmanager.RequestsTopic(group),
		"responsesTopic": topicmanager.ResponsesTopic(group),
	})
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	group := r.PathValue("group")
	if err := s.topics.DeleteTopicSet(r.Context(), group); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTopicGroups lists the configured agent groups this coordinator
// manages topics for, distinct from handleListTopics which lists the
// derived topic names themselves.
func (s *Server) handleTopicGroups(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	groups := make([]string, 0, len(s.topicGroups))
	for group := range s.topicGroups {
		groups = append(groups, group)
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleValidateTopic(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	group := r.PathValue("group")
	cfg, ok := s.topicGroups[group]
	if !ok {
		cfg = model.TopicGroupConfig{Name: group}
	}
	missing, err := s.topics.ValidateTopicHealth(r.Context(), map[string]model.TopicGroupConfig{group: cfg})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group":   group,
		"healthy": len(missing) == 0,
		"missing": missing,
	})
}

func (s *Server) handleRecreateTopic(w http.ResponseWriter, r *http.Request) {
	if !s.requireCoordinator(w) {
		return
	}
	group := r.PathValue("group")
	cfg, ok := s.topicGroups[group]
	if !ok {
		cfg = model.TopicGroupConfig{Name: group}
	}
	if err := s.topics.Recreate(r.Context(), group, cfg); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requestsTopic":  topicmanager.RequestsTopic(group),
		"responsesTopic": topicmanager.ResponsesTopic(group),
	})
}
