package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func limitedHandler(limit int) http.Handler {
	rl := NewRateLimiter(limit, time.Minute)
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(t *testing.T, h http.Handler, addr string, userID uuid.UUID) int {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	r.RemoteAddr = addr
	if userID != uuid.Nil {
		r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w.Code
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	h := limitedHandler(2)

	for i := 0; i < 2; i++ {
		if code := hit(t, h, "10.0.0.1:4321", uuid.Nil); code != http.StatusOK {
			t.Fatalf("request %d blocked early: %d", i+1, code)
		}
	}
	if code := hit(t, h, "10.0.0.1:4321", uuid.Nil); code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", code)
	}
}

func TestRateLimiterIgnoresEphemeralPort(t *testing.T) {
	h := limitedHandler(1)

	hit(t, h, "10.0.0.1:1111", uuid.Nil)
	if code := hit(t, h, "10.0.0.1:2222", uuid.Nil); code != http.StatusTooManyRequests {
		t.Errorf("same host on a new port = %d, want 429", code)
	}
}

func TestRateLimiterKeysAuthenticatedCallersByUser(t *testing.T) {
	h := limitedHandler(1)

	// Two users behind the same address each get their own window.
	if code := hit(t, h, "10.0.0.1:1111", uuid.New()); code != http.StatusOK {
		t.Fatalf("first user = %d", code)
	}
	if code := hit(t, h, "10.0.0.1:1111", uuid.New()); code != http.StatusOK {
		t.Errorf("second user sharing the address = %d, want 200", code)
	}
}
