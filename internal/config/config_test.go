package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORAGE_TYPE", "EMAIL_MODE", "TOKEN_TTL", "ALLOWED_ORIGINS", "PHARMACY_NAME"} {
		t.Setenv(key, "")
	}
	// t.Setenv cannot unset; empty values exercise the parse fallbacks.
	cfg := Load()
	if cfg.TokenTTL != 72*time.Hour {
		t.Errorf("TokenTTL = %v, want 72h", cfg.TokenTTL)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Caption() != cfg.ReportCaption {
		t.Errorf("Caption() = %q without a pharmacy name", cfg.Caption())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("MAX_RENDER_CONCURRENCY", "3")
	t.Setenv("DEFAULT_TIMEOUT", "45s")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PHARMACY_NAME", "Pharmacie du Centre")
	t.Setenv("REPORT_CAPTION", "Diffusion interne")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("PUBLIC_URL", "https://qualite.example/")
	t.Setenv("ATTACH_DOCUMENTS", "false")

	cfg := Load()
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"WorkerCount", cfg.WorkerCount, 8},
		{"MaxRenderConcurrency", cfg.MaxRenderConcurrency, int64(3)},
		{"DefaultTimeout", cfg.DefaultTimeout, 45 * time.Second},
		{"S3PathStyle", cfg.S3PathStyle, true},
		{"AllowedOrigins", cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}},
		{"Caption", cfg.Caption(), "Pharmacie du Centre - Diffusion interne"},
		{"SMTPPort", cfg.SMTPPort, 587},
		{"PublicURL", cfg.PublicURL, "https://qualite.example"},
		{"AttachDocuments", cfg.AttachDocuments, false},
	}
	for _, tt := range tests {
		if !reflect.DeepEqual(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
