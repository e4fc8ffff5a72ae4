package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestMiddlewareChain_CORSRecoveryLogging は
// CORS -> Recovery -> Logging のチェーンが正常リクエストを通すことを検証する。
func TestMiddlewareChain_CORSRecoveryLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handlerCalled := false
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})
	handler = NewLoggingMiddleware(logger, nil)(handler)
	handler = NewRecoveryMiddleware()(handler)
	handler = NewCORSMiddleware("http://localhost:3000")(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["path"] != "/api/drafts" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/drafts")
	}
}

// TestMiddlewareChain_PanicRecovered はチェーン内のpanicが
// Recoveryで500に変換され、Loggingが500を記録することを検証する。
func TestMiddlewareChain_PanicRecovered(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler = NewLoggingMiddleware(logger, nil)(handler)
	handler = NewRecoveryMiddleware()(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/schedule", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// TestMiddlewareChain_RateLimitBeforeHandler はレート制限がチェーン内で
// ハンドラーより先に評価されることを検証する。
func TestMiddlewareChain_RateLimitBeforeHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		ResearchRate:    1,
		ResearchBurst:   1,
		CleanupInterval: time.Minute,
	}
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handlerCallCount := 0
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	})
	handler = rl.GeneralMiddleware()(handler)
	handler = NewLoggingMiddleware(logger, nil)(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
	req.RemoteAddr = "203.0.113.100:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/drafts", nil)
	req.RemoteAddr = "203.0.113.100:51234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}
	if handlerCallCount != 1 {
		t.Errorf("handler call count = %d, want 1", handlerCallCount)
	}
}
