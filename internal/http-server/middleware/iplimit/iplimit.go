// Package iplimit throttles unauthenticated endpoints per client address
// with a fixed counting window.
package iplimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"

	"qiming/lib/api/response"
	"qiming/lib/apperr"
	"qiming/lib/mask"
	"qiming/lib/sl"
)

const maxTrackedAddresses = 10000

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxRequests int
	size        time.Duration
	now         func() time.Time
}

func New(maxRequests int, size time.Duration) *Limiter {
	return &Limiter{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		size:        size,
		now:         time.Now,
	}
}

// Allow counts one request for addr and reports whether it is still within
// the window budget, together with the seconds until the window resets.
func (l *Limiter) Allow(addr string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	win, ok := l.windows[addr]
	if !ok || now.After(win.resetAt) {
		if len(l.windows) >= maxTrackedAddresses {
			l.prune(now)
		}
		l.windows[addr] = &window{count: 1, resetAt: now.Add(l.size)}
		return true, 0
	}

	win.count++
	if win.count > l.maxRequests {
		wait := int((win.resetAt.Sub(now) + time.Second - 1) / time.Second)
		return false, wait
	}
	return true, 0
}

func (l *Limiter) prune(now time.Time) {
	for addr, win := range l.windows {
		if now.After(win.resetAt) {
			delete(l.windows, addr)
		}
	}
}

func (l *Limiter) Middleware(log *slog.Logger) func(next http.Handler) http.Handler {
	logger := log.With(sl.Module("middleware.iplimit"))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			addr := ClientIp(r)
			ok, wait := l.Allow(addr)
			if !ok {
				logger.Warn("address throttled",
					slog.String("ip", mask.Ip(addr)),
					slog.Int("wait", wait),
				)
				e := apperr.RateLimitExceeded(wait)
				render.Status(r, e.Status)
				render.JSON(w, r, response.Err(e))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// ClientIp resolves the caller address, preferring the first entry of
// X-Forwarded-For when a proxy is in front.
func ClientIp(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
