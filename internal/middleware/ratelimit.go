package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimiter caps requests per caller over a fixed window. Authenticated
// callers are keyed by user id so unrelated users behind one NAT do not
// share a budget; anonymous callers fall back to the client address.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*callerWindow
	limit   int
	window  time.Duration
}

type callerWindow struct {
	count   int
	started time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
	}
	go rl.sweep()
	return rl
}

// sweep drops windows that went a full period without traffic.
func (rl *RateLimiter) sweep() {
	for {
		time.Sleep(rl.window)
		rl.mu.Lock()
		for key, cw := range rl.windows {
			if time.Since(cw.started) > rl.window {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// callerKey prefers the authenticated user id over the transport address.
func callerKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != uuid.Nil {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.windows[key]
	if !ok || now.Sub(cw.started) > rl.window {
		rl.windows[key] = &callerWindow{count: 1, started: now}
		return true
	}
	cw.count++
	return cw.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(callerKey(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
