package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qms-exporter/internal/config"
)

func TestLocalSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)
	ctx := context.Background()
	data := []byte("%PDF-1.3 fake")

	if err := Save(ctx, p, "exports/2026/fiche-EI-1.pdf", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "exports", "2026", "fiche-EI-1.pdf")); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	got, err := Load(ctx, p, "exports/2026/fiche-EI-1.pdf", 1024)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Load() = %q, want %q", got, data)
	}
	if _, err := Load(ctx, p, "exports/2026/fiche-EI-1.pdf", 4); err == nil {
		t.Errorf("Load() with a small limit should fail")
	}

	if url := p.GetDownloadURL("exports/2026/fiche-EI-1.pdf"); !strings.HasPrefix(url, "file://") {
		t.Errorf("GetDownloadURL() = %q", url)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()
	tests := []string{"../outside.pdf", "exports/../../outside.pdf"}
	for _, key := range tests {
		if err := Save(ctx, p, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if _, err := p.OpenFile(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("OpenFile(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"a/b.pdf", "application/pdf"},
		{"registre.csv", "text/csv"},
		{"registre.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.key); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{cfg: config.Config{StorageType: "local", LocalStoragePath: t.TempDir()}, want: "*storage.LocalProvider"},
		{cfg: config.Config{StorageType: "s3", S3Bucket: "qms", AWSRegion: "eu-west-3"}, want: "*storage.S3Provider"},
		{cfg: config.Config{StorageType: "s3"}, wantErr: true},
		{cfg: config.Config{StorageType: "ftp"}, wantErr: true},
	}
	for _, tt := range tests {
		p, err := New(&tt.cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q) accepted an incomplete configuration", tt.cfg.StorageType)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.cfg.StorageType, err)
		}
		if got := fmt.Sprintf("%T", p); got != tt.want {
			t.Errorf("New(%q) = %s, want %s", tt.cfg.StorageType, got, tt.want)
		}
	}
}
