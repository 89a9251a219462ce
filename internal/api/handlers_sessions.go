package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/resolver"
	"github.com/wardenhq/warden/internal/store"
)

// SessionHandler is the UI-facing read surface plus the agent-lifecycle
// write route.
type SessionHandler struct {
	svc       *resolver.Service
	decisions *store.DecisionStore
	sessions  *store.SessionStore
}

func NewSessionHandler(svc *resolver.Service, decisions *store.DecisionStore, sessions *store.SessionStore) *SessionHandler {
	return &SessionHandler{svc: svc, decisions: decisions, sessions: sessions}
}

// List handles GET /sessions. Durable session records are merged with the
// live registry, so sessions from before a restart still appear, with their
// state derived fresh (inactive until something happens).
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.svc.Sessions()

	if h.sessions != nil {
		known := make(map[string]bool, len(infos))
		for _, si := range infos {
			known[si.ID] = true
		}
		records, err := h.sessions.List(0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, rec := range records {
			if known[rec.ID] {
				continue
			}
			infos = append(infos, models.SessionInfo{
				ID:    rec.ID,
				State: h.svc.SessionState(rec.ID),
			})
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": infos,
	})
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, models.SessionInfo{
		ID:           id,
		State:        h.svc.SessionState(id),
		PendingCount: len(h.svc.PendingPrompts(id)),
	})
}

// Prompts handles GET /sessions/{id}/prompts. Prompts come back in surfacing
// order, so the first element is what a UI should show.
func (h *SessionHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prompts := h.svc.PendingPrompts(id)
	if prompts == nil {
		prompts = []*models.Prompt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts": prompts,
	})
}

// Agent handles POST /sessions/{id}/agent, the external agent-run lifecycle
// event. Session state is never set directly; this only records liveness.
func (h *SessionHandler) Agent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Running bool `json:"running"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Running {
		h.svc.AgentStarted(id)
	} else {
		h.svc.AgentStopped(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.svc.SessionState(id),
	})
}

// Decisions handles GET /sessions/{id}/decisions, the audit trail.
func (h *SessionHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	if h.decisions == nil {
		writeError(w, http.StatusNotFound, "audit log not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	decisions, err := h.decisions.ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if decisions == nil {
		decisions = []*store.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": decisions,
	})
}
