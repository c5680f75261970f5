package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"qms-exporter/internal/worker"
)

const keyPrefixLen = 16

var (
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrInvalidKeyType = errors.New("api key type must be live or test")
)

// Store keeps the export history and the API keys in MySQL.
type Store struct {
	db *sql.DB
}

// NewStore opens the database. The DSN needs parseTime=true.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id CHAR(36) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			source_id VARCHAR(64) NOT NULL DEFAULT '',
			format VARCHAR(8) NOT NULL,
			status VARCHAR(16) NOT NULL,
			filename VARCHAR(255) NOT NULL DEFAULT '',
			storage_key VARCHAR(512) NOT NULL DEFAULT '',
			pages INT NOT NULL DEFAULT 0,
			size BIGINT NOT NULL DEFAULT 0,
			error TEXT NULL,
			email_error TEXT NULL,
			submitted_at DATETIME(3) NOT NULL,
			started_at DATETIME(3) NULL,
			finished_at DATETIME(3) NULL,
			INDEX idx_exports_kind (kind, submitted_at)
		);`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			label VARCHAR(128) NOT NULL,
			key_hash VARCHAR(255) NOT NULL,
			key_prefix VARCHAR(16) NOT NULL,
			type ENUM('live', 'test') NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMP NULL,
			INDEX idx_api_keys_prefix (key_prefix)
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// RecordExport inserts or refreshes the history row of a job.
func (s *Store) RecordExport(ctx context.Context, v worker.JobView) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exports
		(id, kind, source_id, format, status, filename, storage_key, pages, size, error, email_error, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status), filename = VALUES(filename), storage_key = VALUES(storage_key),
			pages = VALUES(pages), size = VALUES(size), error = VALUES(error),
			email_error = VALUES(email_error), started_at = VALUES(started_at), finished_at = VALUES(finished_at)`,
		v.ID, v.Kind, v.SourceID, v.Format, string(v.Status), v.Filename, v.StorageKey, v.Pages, v.Size,
		nullString(v.Error), nullString(v.EmailError), v.Submitted, nullTime(v.Started), nullTime(v.Finished),
	)
	return err
}

// ListExports returns the latest exports, newest first. An empty kind
// lists every kind.
func (s *Store) ListExports(ctx context.Context, kind string, limit int) ([]worker.JobView, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, kind, source_id, format, status, filename, storage_key, pages, size,
		error, email_error, submitted_at, started_at, finished_at
		FROM exports WHERE (? = '' OR kind = ?) ORDER BY submitted_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []worker.JobView
	for rows.Next() {
		var v worker.JobView
		var status string
		var errMsg, emailErr sql.NullString
		var started, finished sql.NullTime
		if err := rows.Scan(&v.ID, &v.Kind, &v.SourceID, &v.Format, &status, &v.Filename, &v.StorageKey,
			&v.Pages, &v.Size, &errMsg, &emailErr, &v.Submitted, &started, &finished); err != nil {
			return nil, err
		}
		v.Status = worker.JobStatus(status)
		v.Error = errMsg.String
		v.EmailError = emailErr.String
		if started.Valid {
			v.Started = &started.Time
		}
		if finished.Valid {
			v.Finished = &finished.Time
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// API Key Methods

type APIKey struct {
	ID        int       `json:"id"`
	Label     string    `json:"label"`
	KeyPrefix string    `json:"key_prefix"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAPIKey returns a new raw key. Only its bcrypt hash and prefix are
// stored, so the raw key cannot be shown again.
func (s *Store) CreateAPIKey(ctx context.Context, label, keyType string) (string, error) {
	rawKey, err := generateKey(rand.Reader, keyType)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO api_keys (label, key_hash, key_prefix, type) VALUES (?, ?, ?, ?)",
		label, string(hash), keyPrefix(rawKey), keyType,
	)
	if err != nil {
		return "", err
	}

	return rawKey, nil
}

// generateKey builds sk_<type>_<48 hex chars>.
func generateKey(random io.Reader, keyType string) (string, error) {
	if keyType != "live" && keyType != "test" {
		return "", ErrInvalidKeyType
	}
	secret := make([]byte, 24)
	if _, err := io.ReadFull(random, secret); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return "sk_" + keyType + "_" + hex.EncodeToString(secret), nil
}

func keyPrefix(rawKey string) string {
	if len(rawKey) > keyPrefixLen {
		return rawKey[:keyPrefixLen]
	}
	return rawKey
}

// VerifyAPIKey looks candidates up by prefix and compares hashes.
func (s *Store) VerifyAPIKey(ctx context.Context, rawKey string) (*APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, label, key_hash, key_prefix, type, created_at FROM api_keys WHERE key_prefix = ?",
		keyPrefix(rawKey))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k APIKey
		var hash string
		if err := rows.Scan(&k.ID, &k.Label, &hash, &k.KeyPrefix, &k.Type, &k.CreatedAt); err != nil {
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)) == nil {
			if _, err := s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = NOW() WHERE id = ?", k.ID); err != nil {
				slog.Warn("Failed to touch api key", "key_id", k.ID, "error", err)
			}
			return &k, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, ErrInvalidAPIKey
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, label, key_prefix, type, created_at FROM api_keys ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Label, &k.KeyPrefix, &k.Type, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
