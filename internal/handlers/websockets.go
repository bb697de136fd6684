package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"matrix_orchestrator/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 12 // 4 KB
	defaultInterval = 1 * time.Second
	maxInterval     = 10 * time.Second
)

const wsTypeStatus = "status"

type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// The stream is token protected, so any origin may connect.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Status stream
// @Description  Upgrades to a WebSocket. The orchestrator status is sent at once, then whenever it changes, checked every interval (?interval=2s or ?interval_ms=2000, max 10s).
// @Tags         status
// @Param        access_token  query  string  false  "Bearer token when the Authorization header cannot be set"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// clients never send anything; reading detects disconnects and serves pongs
	done := make(chan struct{})
	go h.drain(conn, done)

	ctx := c.Request.Context()
	last, err := h.sendStatus(ctx, conn)
	if err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	check := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer check.Stop()
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-h.closing:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "orchestrator shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-check.C:
			st, err := h.services.Monitoring.GetState(ctx)
			if err != nil {
				h.log.Errorw("ws_get_status_failed", "err", err)
				return
			}
			if sameStatus(st, last) {
				continue
			}
			if err := writeStatus(conn, st); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
			last = st
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000, bounded by maxInterval.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && time.Duration(v)*time.Millisecond <= maxInterval {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

func (h *Handler) drain(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (h *Handler) sendStatus(ctx context.Context, conn *websocket.Conn) (models.OrchestratorState, error) {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.log.Errorw("ws_get_status_failed", "err", err)
		return st, err
	}
	return st, writeStatus(conn, st)
}

func writeStatus(conn *websocket.Conn, st models.OrchestratorState) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: wsTypeStatus, Data: st})
}

// sameStatus compares snapshots ignoring UpdatedAt, which moves on every poll.
func sameStatus(a, b models.OrchestratorState) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
