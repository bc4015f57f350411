package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"gearadvisor-backend/internal/advisor"
)

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		req.RemoteAddr = "10.0.0.1:5000" + string(rune('0'+i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", codes[2])
	}
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	if !rl.Allow("ip:10.0.0.1") {
		t.Fatal("first request from client A should pass")
	}
	if !rl.Allow("ip:10.0.0.2") {
		t.Fatal("first request from client B should pass")
	}
	if rl.Allow("ip:10.0.0.1") {
		t.Fatal("second request from client A should be limited")
	}
}

func TestClientKey_StripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.7:41234"

	if got := clientKey(req); got != "ip:192.168.1.7" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestClientKey_IgnoresSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	req.RemoteAddr = "192.168.1.7:41234"
	session := advisor.NewSession(uuid.New(), time.Now())
	req = req.WithContext(WithSession(req.Context(), session))

	if got := clientKey(req); got != "ip:192.168.1.7" {
		t.Errorf("unexpected key %q", got)
	}
}
