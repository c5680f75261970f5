package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"qms-exporter/internal/security"
	"qms-exporter/internal/server/store"
)

func echoBody() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})
}

type keyList map[string]*store.APIKey

func (k keyList) VerifyAPIKey(_ context.Context, raw string) (*store.APIKey, error) {
	if key, ok := k[raw]; ok {
		return key, nil
	}
	return nil, store.ErrInvalidAPIKey
}

func TestSignature(t *testing.T) {
	const secret = "s3cret"
	body := `{"kind":"procedure"}`
	now := strconv.FormatInt(time.Now().Unix(), 10)
	old := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	keys := keyList{"sk_live_good": {ID: 7, Type: "live"}}

	tests := []struct {
		name    string
		secret  string
		headers map[string]string
		want    int
	}{
		{"signed", secret, map[string]string{"X-Timestamp": now, "X-Signature": security.Sign(secret, "POST", "/exports", body, now)}, http.StatusOK},
		{"wrong signature", secret, map[string]string{"X-Timestamp": now, "X-Signature": "00"}, http.StatusUnauthorized},
		{"expired", secret, map[string]string{"X-Timestamp": old, "X-Signature": security.Sign(secret, "POST", "/exports", body, old)}, http.StatusUnauthorized},
		{"unsigned", secret, nil, http.StatusUnauthorized},
		{"api key", secret, map[string]string{"X-API-Key": "sk_live_good"}, http.StatusOK},
		{"bad api key", secret, map[string]string{"X-API-Key": "sk_live_bad"}, http.StatusUnauthorized},
		{"signing disabled", "", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			Signature(tt.secret, keys)(echoBody()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && rec.Body.String() != body {
				t.Errorf("body seen by handler = %q, want %q", rec.Body.String(), body)
			}
		})
	}
}

func TestSignatureBodyLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(strings.Repeat("a", MaxBodySize+1)))
	rec := httptest.NewRecorder()
	Signature("s", nil)(echoBody()).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://a.example", http.MethodGet, "*", http.StatusOK},
		{"listed", []string{"https://a.example"}, "https://a.example", http.MethodGet, "https://a.example", http.StatusOK},
		{"unlisted", []string{"https://a.example"}, "https://evil.example", http.MethodGet, "", http.StatusOK},
		{"preflight", []string{"*"}, "https://a.example", http.MethodOptions, "*", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/exports", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.allowed, "production")(echoBody()).ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://a.example"}
	if !OriginAllowed(allowed, "") || !OriginAllowed(allowed, "https://a.example") || OriginAllowed(allowed, "https://b.example") {
		t.Errorf("OriginAllowed() disagrees with the allow list")
	}
}

func TestLoggingKeepsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
