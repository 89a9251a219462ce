package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/resolver"
)

// PlanHandler carries the gateway's submit / long-poll / resolve surface.
type PlanHandler struct {
	svc *resolver.Service
}

func NewPlanHandler(svc *resolver.Service) *PlanHandler {
	return &PlanHandler{svc: svc}
}

// Request handles POST /plan/request. The body is the prompt itself; the
// request id is the prompt id, generated server-side when absent. A non-2xx
// here tells the adapter to deny with a communication-failure reason, so
// validation failures must not masquerade as success.
func (h *PlanHandler) Request(w http.ResponseWriter, r *http.Request) {
	var p models.Prompt
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	requestID, err := h.svc.Submit(&p)
	if err != nil {
		if errors.Is(err, resolver.ErrDuplicateRequest) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"requestId": requestID})
}

// Response handles GET /plan/response/{requestId}. The connection stays open
// until the decision arrives or the service-side deadline synthesizes a
// denial; the adapter supplies no timeout of its own.
func (h *PlanHandler) Response(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	resp, err := h.svc.Await(r.Context(), requestID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, resolver.ErrUnknownRequest):
		writeError(w, http.StatusNotFound, "unknown request id")
	case errors.Is(err, resolver.ErrAlreadyWaiting):
		writeError(w, http.StatusConflict, "a waiter is already attached to this request")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Caller went away; nothing useful to write and likely no one to
		// read it. The request itself stays pending until its deadline.
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Resolve handles POST /plan/resolve/{requestId}: the human decision arriving
// on a separate inbound request. Duplicate resolutions are not errors; the
// original outcome is reported.
func (h *PlanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	var resp models.PromptResponse
	if err := decodeJSON(r, &resp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.svc.Resolve(requestID, &resp)
	if err != nil {
		if errors.Is(err, resolver.ErrUnknownRequest) {
			writeError(w, http.StatusNotFound, "unknown request id")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}
