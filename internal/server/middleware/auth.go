package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"qms-exporter/internal/security"
	"qms-exporter/internal/server/store"
)

// MaxBodySize bounds signed request bodies.
const MaxBodySize = 10 << 20

// KeyVerifier checks API keys sent in the X-API-Key header.
type KeyVerifier interface {
	VerifyAPIKey(ctx context.Context, rawKey string) (*store.APIKey, error)
}

// Signature authenticates a request either by API key, when keys is not nil
// and the header is present, or by HMAC signature over
// method + path + body + X-Timestamp. With an empty secret and no key
// header the request passes, which is how local development runs.
func Signature(secret string, keys KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get("X-API-Key"); raw != "" && keys != nil {
				key, err := keys.VerifyAPIKey(r.Context(), raw)
				if err != nil {
					slog.Warn("Rejected API key", "path", r.URL.Path, "error", err)
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				slog.Debug("API key accepted", "key_id", key.ID, "type", key.Type)
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "Unreadable body", http.StatusBadRequest)
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			err = security.VerifyHMAC(secret, r.Method, r.URL.Path, string(body),
				r.Header.Get("X-Timestamp"), r.Header.Get("X-Signature"))
			if err != nil {
				slog.Warn("Rejected request signature", "path", r.URL.Path, "error", err)
				http.Error(w, "Invalid signature", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
