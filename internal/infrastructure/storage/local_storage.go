package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
)

// LocalStorage keeps drawing blobs on the local filesystem.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalStorage creates a local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		return nil, fmt.Errorf("DRAWING_LOCAL_STORAGE_PATH is required for local storage")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	logger.Info().Str("path", basePath).Msg("local storage initialized")

	return &LocalStorage{
		basePath: basePath,
		log:      logger,
	}, nil
}

// Upload stores a blob on the local filesystem.
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int64("bytes", written).
		Msg("drawing stored locally")

	return nil
}

// Download reads a blob from the local filesystem.
func (l *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("drawing blob not found: %s", key)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	return file, detectContentTypeFromPath(fullPath), nil
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

// detectContentTypeFromPath attempts to determine content type from the
// file extension.
func detectContentTypeFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".dwg":
		return "image/vnd.dwg"
	case ".dxf":
		return "image/vnd.dxf"
	default:
		return "application/octet-stream"
	}
}
