package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("storage key escapes the base directory")

type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) *LocalProvider {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		slog.Error("Failed to ensure local storage directory exists", "path", basePath, "error", err)
	}
	return &LocalProvider{
		basePath: basePath,
	}
}

// resolve maps key inside basePath. Keys come from job IDs and report
// references, so anything climbing out of the directory is rejected.
func (p *LocalProvider) resolve(key string) (string, error) {
	fullPath := filepath.Join(p.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(p.basePath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return fullPath, nil
}

func (p *LocalProvider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	errChan := make(chan error, 1)

	fullPath, err := p.resolve(key)
	if err != nil {
		errChan <- err
		close(errChan)
		return nil, errChan
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		errChan <- fmt.Errorf("failed to create directory %s: %w", dir, err)
		close(errChan)
		return nil, errChan
	}

	f, err := os.Create(fullPath)
	if err != nil {
		errChan <- fmt.Errorf("failed to create file %s: %w", fullPath, err)
		close(errChan)
		return nil, errChan
	}

	return &localWriter{
		f:       f,
		errChan: errChan,
		path:    fullPath,
	}, errChan
}

func (p *LocalProvider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

func (p *LocalProvider) GetDownloadURL(key string) string {
	abs, _ := filepath.Abs(filepath.Join(p.basePath, key))
	return fmt.Sprintf("file://%s", filepath.ToSlash(abs))
}

type localWriter struct {
	f       *os.File
	errChan chan error
	path    string
}

func (w *localWriter) Write(p []byte) (n int, err error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	err := w.f.Close()
	if err != nil {
		w.errChan <- err
	} else {
		slog.Info("Local file write completed", "path", w.path)
		w.errChan <- nil
	}
	close(w.errChan)
	return err
}
