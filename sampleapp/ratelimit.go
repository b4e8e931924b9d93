package sampleapp

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// rateLimiter is a token-bucket limiter keyed per caller. Each key gets a
// bucket of `burst` tokens refilled at `perMinute` tokens per minute; a
// request costs one token. Callers are identified by bearer token when
// present, otherwise by remote address.
type rateLimiter struct {
	perMinute int
	burst     int
	buckets   map[string]*bucket
	lock      sync.Mutex
	now       func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

func newRateLimiter(perMinute, burst int) *rateLimiter {
	return &rateLimiter{
		perMinute: perMinute,
		burst:     burst,
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

// take consumes one token for the key. When the bucket is empty it returns
// false along with how long the caller should wait for the next token.
func (l *rateLimiter) take(key string) (bool, time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: float64(l.burst), lastRefill: now}
		l.buckets[key] = b
	}

	refillPerSecond := float64(l.perMinute) / 60
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(float64(l.burst), b.tokens+elapsed*refillPerSecond)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / refillPerSecond * float64(time.Second))
	return false, wait
}

func callerKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return "token:" + token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}

// rateLimit rejects requests that exceed the caller's budget with a 429 and a
// Retry-After header rounded up to whole seconds.
func (a *App) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := a.limiter.take(callerKey(r))
		if !ok {
			seconds := int(math.Ceil(wait.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
