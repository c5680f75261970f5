package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
)

// Provider defines where rendered documents are kept.
type Provider interface {
	// StreamToFile returns a WriteCloser. Data written to it is streamed to the storage destination.
	// The key is the relative path/filename for the object.
	// The returned channel receives a single error (or nil) when the storage operation completes.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens the stored file for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a viewable/downloadable URL for the stored item.
	GetDownloadURL(key string) string
}

// Save writes data under key and waits until the provider has committed it.
func Save(ctx context.Context, p Provider, key string, data []byte) error {
	w, errChan := p.StreamToFile(ctx, key)
	if w == nil {
		return <-errChan
	}
	_, copyErr := io.Copy(w, bytes.NewReader(data))
	closeErr := w.Close()
	uploadErr := <-errChan

	switch {
	case copyErr != nil:
		return fmt.Errorf("write %s: %w", key, copyErr)
	case closeErr != nil:
		return fmt.Errorf("close %s: %w", key, closeErr)
	case uploadErr != nil:
		return fmt.Errorf("store %s: %w", key, uploadErr)
	}
	return nil
}

// Load reads a stored object fully, refusing objects larger than limit bytes.
func Load(ctx context.Context, p Provider, key string, limit int64) ([]byte, error) {
	r, err := p.OpenFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", key, limit)
	}
	return data, nil
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".json": "application/x-ndjson",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ContentType guesses the MIME type of a stored object from its key.
func ContentType(key string) string {
	if ct, ok := contentTypes[path.Ext(key)]; ok {
		return ct
	}
	return "application/octet-stream"
}
