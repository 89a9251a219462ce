package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/signal"
)

// SignalHandler exposes the cross-process signal channel over HTTP for hook
// processes that share no filesystem with the gateway.
type SignalHandler struct {
	ch signal.Channel
}

func NewSignalHandler(ch signal.Channel) *SignalHandler {
	return &SignalHandler{ch: ch}
}

// Mark handles POST /signal/{sessionId}
func (h *SignalHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if err := h.ch.Mark(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"present": true})
}

// Check handles GET /signal/{sessionId}
func (h *SignalHandler) Check(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	present, err := h.ch.Check(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"present": present})
}

// Consume handles DELETE /signal/{sessionId}. The channel guarantees exactly
// one of two racing consumers observes true.
func (h *SignalHandler) Consume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	consumed, err := h.ch.Consume(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"consumed": consumed})
}
