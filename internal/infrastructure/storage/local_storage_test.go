package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	cfg := &config.Config{LocalStoragePath: t.TempDir()}
	store, err := NewLocalStorage(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("create local storage: %v", err)
	}
	return store
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store := newTestLocalStorage(t)
	ctx := context.Background()

	payload := []byte("drawing payload")
	key := "drawings/dwg_test.png"
	if err := store.Upload(ctx, key, bytes.NewReader(payload), int64(len(payload)), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	reader, mime, err := store.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("downloaded %q, want %q", data, payload)
	}
	if mime != "image/png" {
		t.Errorf("mime = %s, want image/png", mime)
	}
}

func TestLocalStorageDownloadMissingKey(t *testing.T) {
	store := newTestLocalStorage(t)
	if _, _, err := store.Download(context.Background(), "drawings/nope.pdf"); err == nil {
		t.Error("expected error for missing blob")
	}
}

func TestLocalStorageRequiresPath(t *testing.T) {
	cfg := &config.Config{LocalStoragePath: "  "}
	if _, err := NewLocalStorage(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for empty storage path")
	}
}

func TestLocalStorageHealth(t *testing.T) {
	store := newTestLocalStorage(t)
	if err := store.Health(context.Background()); err != nil {
		t.Errorf("health: %v", err)
	}
}

func TestDetectContentTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"drawings/a.jpg", "image/jpeg"},
		{"drawings/a.png", "image/png"},
		{"drawings/a.pdf", "application/pdf"},
		{"drawings/a.dwg", "image/vnd.dwg"},
		{"drawings/a.dxf", "image/vnd.dxf"},
		{"drawings/a.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := detectContentTypeFromPath(tt.path); got != tt.want {
			t.Errorf("detectContentTypeFromPath(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
