package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"matrix_orchestrator/internal/service"
)

func TestAuthHandlers_SignIn(t *testing.T) {
	auth := &mockAuth{genTokenToken: "tok123", parseID: 1}
	s := &service.Service{Authorization: auth}
	r := newTestRouter(s)

	// sign-in success
	body := bytes.NewBufferString(`{"username":"u","password":"p"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["token"] != "tok123" || m["token_type"] != "Bearer" {
		t.Fatalf("unexpected sign-in body: %v", m)
	}
	if auth.lastGenUsername != "u" || auth.lastGenPassword != "p" {
		t.Fatalf("credentials not forwarded: %q %q", auth.lastGenUsername, auth.lastGenPassword)
	}

	// sign-in invalid body → 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewBufferString(`{"username":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", w.Code)
	}

	// wrong credentials → 401 without leaking the cause
	auth.genTokenErr = service.ErrInvalidPassword
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewBufferString(`{"username":"u","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	m = map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["error"] != "invalid credentials" {
		t.Fatalf("unexpected error body: %v", m)
	}

	// no signing key configured → 503
	auth.genTokenErr = service.ErrNoSigningKey
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewBufferString(`{"username":"u","password":"p"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a signing key, got %d", w.Code)
	}
}

func TestAuthHandlers_NoSignUpRoute(t *testing.T) {
	s := &service.Service{Authorization: &mockAuth{genTokenErr: errors.New("unused")}}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewBufferString(`{"username":"u","password":"p"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("operators come from config; expected 404, got %d", w.Code)
	}
}
