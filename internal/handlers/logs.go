package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"matrix_orchestrator/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use an integer between 1 and 1000"
	errLoadLogs     = "failed to load logs"

	maxLogLimit = 1000

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// @Summary      List display events
// @Description  Journal of program starts, stops, crashes, holiday transitions and weather interrupts. Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).
// @Tags         logs
// @Produce      json
// @Param        from     query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to       query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2025-08-31)
// @Param        type     query   string  false  "Event type"  Enums(PROGRAM_START,PROGRAM_STOP,START_FAILED,CRASH,HOLIDAY_START,HOLIDAY_END,RETRY_EXHAUSTED,WEATHER_START,WEATHER_END)
// @Param        program  query   string  false  "Only events of this program"
// @Param        limit    query   int     false  "Only the newest N events (1-1000)"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	f, msg := logFilterFromQuery(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if errors.Is(err, service.ErrInvalidTimeRange) || errors.Is(err, service.ErrUnknownEventType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadLogs, "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type, "program", f.Program)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// logFilterFromQuery reads from, to, type, program and limit. A non-empty
// message means the query is unusable.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	f := service.LogFilter{
		Type:    strings.ToUpper(strings.TrimSpace(c.Query("type"))),
		Program: strings.TrimSpace(c.Query("program")),
	}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errToInvalid
		}
		// a bare date covers the whole day
		if !strings.ContainsAny(qs, "T ") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n < 1 || n > maxLogLimit {
			return f, errLimitInvalid
		}
		f.Limit = n
	}
	return f, ""
}

// parseQueryTime accepts RFC3339, date-time and date-only values, in UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
