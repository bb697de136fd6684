package handlers

import (
	"context"
	"net/http"
	"time"

	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	state models.OrchestratorState
	err   error

	// stateFn, when set, replaces state; the websocket tests call it concurrently.
	stateFn func() models.OrchestratorState
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.OrchestratorState, error) {
	if m.stateFn != nil {
		return m.stateFn(), m.err
	}
	return m.state, m.err
}

type mockSchedule struct {
	view service.ScheduleView
	err  error
}

func (m *mockSchedule) View(ctx context.Context) (service.ScheduleView, error) {
	return m.view, m.err
}

type mockEventLog struct {
	resp     []models.DisplayEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string

	lastProgram string
	lastLimit   int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DisplayEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastProgram = f.Program
	m.lastLimit = f.Limit
	return m.resp, m.err
}

func (m *mockEventLog) Prune(ctx context.Context, now time.Time, keep time.Duration) (int64, error) {
	return 0, nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
