package service

import (
	"context"
	"sync"
	"time"

	"matrix_orchestrator/internal/models"
)

// StatusStore holds the latest snapshot published by the orchestrator loop.
// Readers get copies; only the loop writes.
type StatusStore struct {
	mu    sync.RWMutex
	state models.OrchestratorState
	set   bool
}

func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

// Publish replaces the snapshot.
func (s *StatusStore) Publish(st models.OrchestratorState) {
	s.mu.Lock()
	s.state = st
	s.set = true
	s.mu.Unlock()
}

// Snapshot returns the latest state and whether anything was published yet.
func (s *StatusStore) Snapshot() (models.OrchestratorState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.set
}

type MonitoringService struct {
	status *StatusStore
}

func NewMonitoringService(status *StatusStore) *MonitoringService {
	return &MonitoringService{status: status}
}

// GetState returns the latest orchestrator snapshot.
// Before the first poll it returns an unstarted baseline.
func (s *MonitoringService) GetState(ctx context.Context) (models.OrchestratorState, error) {
	if err := ctx.Err(); err != nil {
		return models.OrchestratorState{}, err
	}
	st, ok := s.status.Snapshot()
	if !ok {
		return s.baselineState(), nil
	}
	st.UpdatedAt = toUTC(st.UpdatedAt)
	st.ProgramStartTime = toUTC(st.ProgramStartTime)
	st.LastWeatherCheck = toUTC(st.LastWeatherCheck)
	st.NextRetryAt = toUTC(st.NextRetryAt)
	return st, nil
}

// baselineState is what the API reports before the orchestrator has polled.
func (s *MonitoringService) baselineState() models.OrchestratorState {
	return models.OrchestratorState{
		WeatherState: models.WeatherNormal,
		UpdatedAt:    time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
