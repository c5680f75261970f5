package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qms-exporter/internal/report"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrUnknownDriver  = errors.New("unknown driver")
)

// Driver abstracts the database the report payloads are read from.
type Driver interface {
	// Name returns the driver name (e.g., "mysql", "postgres").
	Name() string

	// Ping verifies the connection to the database.
	Ping(ctx context.Context) error

	// Query executes a query and returns a RowStreamer to iterate over results.
	// SQL drivers take "?" placeholders whatever the dialect.
	Query(ctx context.Context, query string, args ...any) (RowStreamer, error)

	// FetchReport returns the JSON payload stored for kind and id.
	FetchReport(ctx context.Context, kind report.Kind, id string) ([]byte, error)

	// ListReports streams the id, kind and update time of stored reports of kind.
	ListReports(ctx context.Context, kind report.Kind) (RowStreamer, error)

	// Close closes the database connection.
	Close() error
}

// RowStreamer iterates over query results.
// It is designed to be memory-efficient and stream-oriented.
type RowStreamer interface {
	// Columns returns the column names. Safe to call after Query returns.
	Columns() ([]string, error)

	// ColumnTypes returns column information such as database type name.
	ColumnTypes() ([]*sql.ColumnType, error)

	// Next advances to the next row. Returns false when there are no more rows or an error occurs.
	Next() bool

	// Scan copies the columns in the current row into the values pointed at by dest.
	// The number of values must be the same as the number of columns.
	Scan(dest ...any) error

	// Err returns the error, if any, that was encountered during iteration.
	Err() error

	// Close closes the streamer and frees resources.
	Close() error
}

// Open returns the driver registered under name. Connections are made
// lazily on first use.
func Open(name, dsn string) (Driver, error) {
	switch name {
	case "mysql":
		return NewMySQLDriver(dsn), nil
	case "postgres":
		return NewPostgresDriver(dsn), nil
	case "mongo":
		return NewMongoDriver(dsn), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}
