package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/config"
	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// dataset_name accepts only relative names that cannot leave the data directory.
	_ = v.RegisterValidation("dataset_name", func(fl validator.FieldLevel) bool {
		return dataset.ValidName(fl.Field().String())
	})
	return v
}

type RunsHandler struct {
	store    store.Store
	hermes   hermes.Client
	defaults config.SearchConfig
}

// NewRunsHandler creates the runs handler. Requests that leave a parameter
// out get the value from defaults.
func NewRunsHandler(s store.Store, h hermes.Client, defaults config.SearchConfig) *RunsHandler {
	return &RunsHandler{store: s, hermes: h, defaults: defaults}
}

type CreateRunRequest struct {
	// Dataset is a file name under dataset.dir or a table name, depending on
	// the configured dataset driver. Empty uses the configured dataset.
	Dataset            string    `json:"dataset,omitempty" validate:"omitempty,dataset_name"`
	Criterion          string    `json:"criterion,omitempty" validate:"omitempty,oneof=LP lp exhaustive bruteforce"`
	Eps                *float64  `json:"eps,omitempty" validate:"omitempty,gte=0"`
	NegativeAttributes []int     `json:"negative_attributes,omitempty" validate:"dive,gte=0"`
	Utility            []float64 `json:"utility,omitempty"`
	Seed               int64     `json:"seed,omitempty"`
	Cutoff             *int      `json:"cutoff,omitempty" validate:"omitempty,gte=0"`
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	run := &store.Run{
		Status:             store.StatusPending,
		Dataset:            req.Dataset,
		Criterion:          req.Criterion,
		Eps:                h.defaults.Eps,
		NegativeAttributes: req.NegativeAttributes,
		Utility:            req.Utility,
		Seed:               req.Seed,
		Cutoff:             h.defaults.Cutoff,
		Source:             "api",
	}
	if run.Criterion == "" {
		run.Criterion = h.defaults.Criterion
	}
	if req.Eps != nil {
		run.Eps = *req.Eps
	}
	if req.Cutoff != nil {
		run.Cutoff = *req.Cutoff
	}
	if run.NegativeAttributes == nil {
		run.NegativeAttributes = h.defaults.NegativeAttributes
	}
	if client := r.Header.Get(ClientIDHeader); client != "" {
		run.Source = client
	}

	if err := h.store.CreateRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if h.hermes != nil {
		_ = h.hermes.Publish(hermes.SubjectRunCreated(run.ID.String()), run)
	}

	writeJSON(w, http.StatusCreated, run)
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{Source: q.Get("source")}
	if s := q.Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
				return
			}
			*dst = n
		}
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, run)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
