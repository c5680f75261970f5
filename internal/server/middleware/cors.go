package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

func CORS(allowedOrigins []string, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allow := false
			if slices.Contains(allowedOrigins, "*") {
				allow = true
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" && slices.Contains(allowedOrigins, origin) {
				allow = true
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				// Credentials cannot be combined with a wildcard origin.
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if env == "development" {
				slog.Debug("CORS check", "origin", origin, "allowed", allow)
			}

			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Signature, X-Timestamp")

			// Handle Preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OriginAllowed reports whether a websocket handshake from origin is accepted.
// Requests without an Origin header come from non-browser clients.
func OriginAllowed(allowedOrigins []string, origin string) bool {
	return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
}
