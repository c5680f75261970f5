package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"qms-exporter/internal/report"
)

const (
	fetchReportQuery = "SELECT payload FROM reports WHERE kind = ? AND id = ?"
	listReportsQuery = "SELECT id, kind, updated_at FROM reports WHERE kind = ? ORDER BY id"
)

// sqlSource is the database/sql plumbing shared by the MySQL and
// PostgreSQL drivers.
type sqlSource struct {
	driverName string
	dsn        string
	dollar     bool

	mu sync.Mutex
	db *sql.DB
}

// conn opens the pool on first use.
func (s *sqlSource) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		db, err := sql.Open(s.driverName, s.dsn)
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	return s.db, nil
}

func (s *sqlSource) Ping(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *sqlSource) Query(ctx context.Context, query string, args ...any) (RowStreamer, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	// *sql.Rows satisfies RowStreamer as is.
	rows, err := db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqlSource) FetchReport(ctx context.Context, kind report.Kind, id string) ([]byte, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, s.rebind(fetchReportQuery), string(kind), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrReportNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, id, err)
	}
	return payload, nil
}

func (s *sqlSource) ListReports(ctx context.Context, kind report.Kind) (RowStreamer, error) {
	return s.Query(ctx, listReportsQuery, string(kind))
}

func (s *sqlSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL. Question marks
// inside quoted literals are left alone.
func (s *sqlSource) rebind(query string) string {
	if !s.dollar || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
