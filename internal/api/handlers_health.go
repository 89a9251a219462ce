package api

import (
	"net/http"

	"github.com/wardenhq/warden/internal/store"
)

type HealthHandler struct {
	db *store.DB
}

func NewHealthHandler(db *store.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status        string `json:"status"`
	DB            string `json:"db,omitempty"`
	DecisionCount int    `json:"decisionCount,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if h.db != nil {
		count, err := h.db.DecisionCount()
		if err != nil {
			resp.Status = "degraded"
			resp.DB = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.DB = "ok"
			resp.DecisionCount = count
		}
	}

	writeJSON(w, status, resp)
}
