package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/service"
)

func TestStatusHandlers_StatusScheduleHealth(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	now := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	mon := &mockMonitoring{state: models.OrchestratorState{
		CurrentProgram:   "winter",
		TargetProgram:    "winter",
		PID:              321,
		ProgramStartTime: now,
		WeatherState:     models.WeatherNormal,
		UpdatedAt:        now,
	}}
	entry := models.ScheduleEntry{Month: 12, Day: 25, DurationHours: 48, ProgramName: "winter", Priority: 10}
	sched := &mockSchedule{view: service.ScheduleView{
		Now:            now,
		DefaultProgram: "clock",
		Resolved:       "winter",
		Active:         []models.ScheduleEntry{entry},
		Entries:        []models.ScheduleEntry{entry},
	}}
	s := &service.Service{Authorization: auth, Monitoring: mon, Schedule: sched}
	r := newTestRouter(s)

	// health is public
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}

	// status requires a token
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header = authHeader("valid")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var st models.OrchestratorState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.CurrentProgram != "winter" || st.PID != 321 || !st.ProgramStartTime.Equal(now) {
		t.Fatalf("unexpected status: %+v", st)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil)
	req.Header = authHeader("valid")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("schedule status=%d body=%s", w.Code, w.Body.String())
	}
	var v service.ScheduleView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Resolved != "winter" || v.DefaultProgram != "clock" || len(v.Entries) != 1 || len(v.Active) != 1 {
		t.Fatalf("unexpected schedule view: %+v", v)
	}
	if v.Entries[0] != entry {
		t.Fatalf("entry mismatch: %+v", v.Entries[0])
	}
}

func TestStatusHandlers_Errors(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Monitoring:    &mockMonitoring{err: errors.New("boom")},
		Schedule:      &mockSchedule{err: errors.New("boom")},
	}
	r := newTestRouter(s)

	for _, path := range []string{"/api/v1/status", "/api/v1/schedule"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header = authHeader("valid")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, w.Code)
		}
	}
}
