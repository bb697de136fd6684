package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetState    = "failed to load status"
	errGetSchedule = "failed to load schedule"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if err != nil {
		fields := append([]any{"err", err, "operator_id", operatorID(c)}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Orchestrator status
// @Description  What the orchestrator believes is on the matrix: current and scheduled program, PID, weather state, retry state.
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.OrchestratorState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "status_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Holiday schedule
// @Description  Loaded schedule entries, the entries eligible now and the program they resolve to.
// @Tags         status
// @Produce      json
// @Success      200  {object}  service.ScheduleView
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedule [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	v, err := h.services.Schedule.View(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSchedule, "schedule_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}
