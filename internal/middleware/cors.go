package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

var (
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", "X-Locale", RequestIDHeader}, ", ")
	corsExposeHeaders = strings.Join([]string{RequestIDHeader, "Retry-After", "Content-Disposition"}, ", ")
	corsMaxAge        = strconv.Itoa(600)
)

// CORS echoes allowed origins. A "*" entry allows any origin. Preflight
// requests are answered here and never reach the router.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allow[strings.TrimRight(origin, "/")] = struct{}{}
	}
	_, wildcard := allow["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := false
			if origin != "" {
				_, ok := allow[origin]
				allowed = ok || wildcard
			}
			h := w.Header()
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			}
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}
			if allowed {
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
