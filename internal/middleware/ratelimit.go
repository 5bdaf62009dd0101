package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type window struct {
	count int
	until time.Time
}

// KeyFunc picks the rate limit bucket for a request. An empty key bypasses the
// limiter.
type KeyFunc func(r *http.Request) string

// ByClientIP buckets requests by the forwarded or remote client address.
func ByClientIP(r *http.Request) string { return clientIPForRateLimit(r) }

// ByUser buckets authenticated requests by user id. Place it after AuthJWT.
func ByUser(r *http.Request) string { return UserIDFromContext(r.Context()) }

// RateLimit allows limit requests per client IP in each fixed window. A
// non-positive limit disables it.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return RateLimitBy(limit, per, ByClientIP)
}

// RateLimitBy is RateLimit with a custom bucket key. Expired windows are
// swept at most once per window length.
func RateLimitBy(limit int, per time.Duration, key KeyFunc) func(http.Handler) http.Handler {
	if limit <= 0 || per <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	var (
		mu        sync.Mutex
		windows   = make(map[string]*window)
		nextSweep time.Time
	)
	allow := func(k string, now time.Time) (bool, time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if now.After(nextSweep) {
			for id, w := range windows {
				if now.After(w.until) {
					delete(windows, id)
				}
			}
			nextSweep = now.Add(per)
		}
		w, ok := windows[k]
		if !ok || now.After(w.until) {
			w = &window{until: now.Add(per)}
			windows[k] = w
		}
		if w.count >= limit {
			return false, w.until.Sub(now)
		}
		w.count++
		return true, 0
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := allow(k, time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
