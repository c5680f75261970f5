package exporter

import (
	"context"
	"fmt"
	"time"

	"qms-exporter/internal/driver"
)

// ExportResult contains stats about the export
type ExportResult struct {
	RowsProcessed int64
	Duration      time.Duration
}

// StreamRows copies every row of streamer into enc and flushes it. Rows are
// scanned into reused buffers so memory stays flat whatever the row count.
// The streamer is closed on return.
func StreamRows(ctx context.Context, streamer driver.RowStreamer, enc RowEncoder) (*ExportResult, error) {
	start := time.Now()
	defer streamer.Close()

	columns, err := streamer.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if err := enc.WriteHeader(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	var rowCount int64
	for streamer.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := streamer.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		if err := enc.WriteRow(values); err != nil {
			return nil, fmt.Errorf("row write failed: %w", err)
		}
		rowCount++
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flush error: %w", err)
	}
	if err := enc.Error(); err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	return &ExportResult{
		RowsProcessed: rowCount,
		Duration:      time.Since(start),
	}, nil
}
