package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

type wsTestEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialStatusStream(t *testing.T, h *Handler, query string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws", h.wsConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) models.OrchestratorState {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env wsTestEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != wsTypeStatus || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var st models.OrchestratorState
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	return st
}

func TestWebSocket_StatusStream_InitialAndOnChange(t *testing.T) {
	var calls atomic.Int32
	mon := &mockMonitoring{stateFn: func() models.OrchestratorState {
		st := models.OrchestratorState{
			CurrentProgram: "winter",
			TargetProgram:  "winter",
			PID:            4242,
			WeatherState:   models.WeatherNormal,
			UpdatedAt:      time.Now().UTC(),
		}
		// from the fourth call on, the weather interrupt is showing
		if calls.Add(1) >= 4 {
			st.CurrentProgram = ""
			st.PID = 0
			st.WeatherState = models.WeatherShowing
		}
		return st
	}}
	h := NewHandler(&service.Service{Monitoring: mon}, nil)
	conn := dialStatusStream(t, h, "interval_ms=20")

	st := readStatus(t, conn)
	if st.CurrentProgram != "winter" || st.PID != 4242 || st.WeatherState != models.WeatherNormal {
		t.Fatalf("unexpected initial status: %+v", st)
	}

	// unchanged snapshots are not resent, so the next message is the change
	st = readStatus(t, conn)
	if st.WeatherState != models.WeatherShowing {
		t.Fatalf("expected the weather snapshot, got %+v", st)
	}
	if calls.Load() < 4 {
		t.Fatalf("expected polling between messages, got %d calls", calls.Load())
	}
}

func TestWebSocket_CloseEndsStream(t *testing.T) {
	mon := &mockMonitoring{state: models.OrchestratorState{CurrentProgram: "clock", WeatherState: models.WeatherNormal}}
	h := NewHandler(&service.Service{Monitoring: mon}, nil)
	conn := dialStatusStream(t, h, "interval_ms=20")

	readStatus(t, conn)
	h.Close()
	h.Close() // idempotent

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected a going-away close, got %v", err)
	}
}

func TestSameStatusIgnoresUpdatedAt(t *testing.T) {
	a := models.OrchestratorState{CurrentProgram: "clock", UpdatedAt: time.Unix(1, 0)}
	b := a
	b.UpdatedAt = time.Unix(2, 0)
	if !sameStatus(a, b) {
		t.Fatalf("UpdatedAt alone should not count as a change")
	}
	b.FailedAttempts = 1
	if sameStatus(a, b) {
		t.Fatalf("FailedAttempts changed")
	}
}

func TestWebSocket_InitialStatusError_Closes(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("boom")}
	s := &service.Service{Monitoring: mon}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// The server should close immediately after failing the initial GetState
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	s := &service.Service{Authorization: auth, Monitoring: &mockMonitoring{}}
	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}

	_, resp, err := dialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatalf("expected handshake to be rejected without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}

	q := u.Query()
	q.Set("access_token", "tok")
	u.RawQuery = q.Encode()
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	defer conn.Close()
	if auth.lastParseToken != "tok" {
		t.Fatalf("token not checked: %q", auth.lastParseToken)
	}
}
