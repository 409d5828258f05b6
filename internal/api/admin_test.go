package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

func TestStatsEndpoint_ReturnsStats(t *testing.T) {
	router, s, _ := setupTestRouter()
	if err := s.CreateRun(context.Background(), &store.Run{Criterion: "LP"}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, "GET", "/api/v1/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats store.RunStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.TotalPending != 1 {
		t.Errorf("expected TotalPending=1, got %d", stats.TotalPending)
	}
}

func TestStatsEndpoint_RequiresToken(t *testing.T) {
	router, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRetryEndpoint(t *testing.T) {
	router, s, h := setupTestRouter()
	ctx := context.Background()

	failed := &store.Run{Criterion: "LP", Status: store.StatusFailed, Error: "solver unavailable"}
	if err := s.CreateRun(ctx, failed); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, "POST", "/api/v1/runs/"+failed.ID.String()+"/retry", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	got, err := s.GetRun(ctx, failed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
	if got.Error != "" {
		t.Errorf("expected error cleared, got %q", got.Error)
	}
	if len(h.published()) != 1 {
		t.Errorf("expected 1 published event, got %d", len(h.published()))
	}
}

func TestRetryEndpoint_OnlyFailedRuns(t *testing.T) {
	router, s, _ := setupTestRouter()

	done := &store.Run{Criterion: "LP", Status: store.StatusCompleted}
	if err := s.CreateRun(context.Background(), done); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, "POST", "/api/v1/runs/"+done.ID.String()+"/retry", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}

	w = doJSON(t, router, "POST", "/api/v1/runs/00000000-0000-0000-0000-000000000001/retry", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
