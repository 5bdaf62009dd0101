package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "empty forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 forwarded",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 remote fallback",
			header:     "invalid",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			header:     "invalid",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1000"
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitByUserSeparatesBucketsAndSkipsAnonymous(t *testing.T) {
	h := RateLimitBy(1, time.Minute, ByUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	if got := call("alice"); got != http.StatusOK {
		t.Fatalf("first alice request = %d", got)
	}
	if got := call("alice"); got != http.StatusTooManyRequests {
		t.Fatalf("second alice request = %d, want 429", got)
	}
	if got := call("bob"); got != http.StatusOK {
		t.Fatalf("a second user gets a separate window, got %d", got)
	}
	for i := 0; i < 3; i++ {
		if got := call(""); got != http.StatusOK {
			t.Fatalf("anonymous requests bypass the user limiter, got %d", got)
		}
	}
}
