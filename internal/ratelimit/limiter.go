package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"qiming/lib/sl"
)

const keyPrefix = "ratelimit:name:"

// Store keeps the last-request timestamp per key. The redis store relies on
// native expiry; the memory store prunes opportunistically.
type Store interface {
	Get(ctx context.Context, key string) (time.Time, bool, error)
	Set(ctx context.Context, key string, t time.Time, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Result struct {
	Allowed     bool
	WaitSeconds int
}

// Limiter enforces a fixed cooldown between generation requests per user.
// Store failures never block a request: the limiter fails open.
type Limiter struct {
	store    Store
	cooldown time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func New(store Store, cooldown time.Duration, log *slog.Logger) *Limiter {
	return &Limiter{
		store:    store,
		cooldown: cooldown,
		log:      log.With(sl.Module("ratelimit")),
		now:      time.Now,
	}
}

// CheckLimit allows the request when no timestamp is recorded or the cooldown
// has elapsed, recording now as the new timestamp. Otherwise it returns the
// seconds left, rounded up.
func (l *Limiter) CheckLimit(ctx context.Context, userId string) Result {
	key := keyPrefix + userId
	now := l.now()

	last, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Error("rate limit check failed, allowing request", sl.Err(err), sl.User(userId))
		return Result{Allowed: true}
	}
	if found {
		elapsed := now.Sub(last)
		if elapsed < l.cooldown {
			wait := waitSeconds(l.cooldown - elapsed)
			l.log.Warn("rate limit triggered", slog.String("key", key), slog.Int("wait_seconds", wait))
			return Result{Allowed: false, WaitSeconds: wait}
		}
	}

	if err = l.store.Set(ctx, key, now, l.cooldown); err != nil {
		l.log.Error("rate limit record failed, allowing request", sl.Err(err), sl.User(userId))
	}
	return Result{Allowed: true}
}

// WaitSeconds is the read-only variant of CheckLimit: it never records.
func (l *Limiter) WaitSeconds(ctx context.Context, userId string) int {
	key := keyPrefix + userId

	last, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Error("rate limit read failed", sl.Err(err), sl.User(userId))
		return 0
	}
	if !found {
		return 0
	}
	elapsed := l.now().Sub(last)
	if elapsed >= l.cooldown {
		return 0
	}
	return waitSeconds(l.cooldown - elapsed)
}

// Reset clears the cooldown for one user.
func (l *Limiter) Reset(ctx context.Context, userId string) {
	if err := l.store.Delete(ctx, keyPrefix+userId); err != nil {
		l.log.Error("rate limit reset failed", sl.Err(err), sl.User(userId))
	}
}

func waitSeconds(remaining time.Duration) int {
	millis := remaining.Milliseconds()
	return int((millis + 999) / 1000)
}
