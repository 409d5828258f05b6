package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

type AdminHandler struct {
	store  store.Store
	hermes hermes.Client
}

func NewAdminHandler(s store.Store, h hermes.Client) *AdminHandler {
	return &AdminHandler{store: s, hermes: h}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Retry puts a failed run back in the queue.
func (h *AdminHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if run.Status != store.StatusFailed {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "only failed runs can be retried"})
		return
	}

	run.Status = store.StatusPending
	run.Error = ""
	run.Result = nil
	run.StartedAt = nil
	run.CompletedAt = nil
	if err := h.store.UpdateRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if h.hermes != nil {
		_ = h.hermes.Publish(hermes.SubjectRunCreated(run.ID.String()), run)
	}
	writeJSON(w, http.StatusOK, run)
}
