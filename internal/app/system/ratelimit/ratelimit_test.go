package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLimiter_BurstThenReject(t *testing.T) {
	l := New(0.001, 3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("fourth request should be rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other keys have their own bucket")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0, 1)
	defer l.Stop()

	for i := 0; i < 50; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
	if l.size() != 0 {
		t.Errorf("disabled limiter tracked %d keys", l.size())
	}
}

func TestLimiter_PruneRestoresIdleKeys(t *testing.T) {
	l := New(0.001, 1)
	defer l.Stop()

	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("second request should be rejected")
	}
	l.Allow("b")
	if l.size() != 2 {
		t.Errorf("size = %d, want 2", l.size())
	}

	l.prune(time.Now().Add(time.Hour))
	if l.size() != 0 {
		t.Errorf("size after prune = %d, want 0", l.size())
	}
	if !l.Allow("a") {
		t.Error("a pruned key should start with a fresh bucket")
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	l := New(0.001, 1)
	defer l.Stop()

	h := l.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Errorf("expected JSON message body, got %q", rec.Body.String())
	}
}

func TestMiddleware_RotatingForwardedForStillLimited(t *testing.T) {
	l := New(0.001, 1)
	defer l.Stop()

	h := l.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for _, xff := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		req.RemoteAddr = "192.0.2.9:4000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: got %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded header ignored", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:80", "1.1.1.1"},
		{"real ip header ignored", map[string]string{"X-Real-IP": " 10.0.0.3 "}, "1.1.1.1:80", "1.1.1.1"},
		{"ipv6", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
