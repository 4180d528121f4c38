package drawing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

var dxfBytes = []byte("0\nSECTION\n2\nHEADER\n9\n$ACADVER\n1\nAC1027\n0\nENDSEC\n0\nEOF\n")

type mockRepository struct {
	findByHashFn func(ctx context.Context, hash string) (*DrawingFile, error)
	createFn     func(ctx context.Context, file *DrawingFile) error
	getByIDFn    func(ctx context.Context, id string) (*DrawingFile, error)
}

func (m *mockRepository) FindByHash(ctx context.Context, hash string) (*DrawingFile, error) {
	if m.findByHashFn != nil {
		return m.findByHashFn(ctx, hash)
	}
	return nil, nil
}

func (m *mockRepository) Create(ctx context.Context, file *DrawingFile) error {
	if m.createFn != nil {
		return m.createFn(ctx, file)
	}
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*DrawingFile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ErrNotFound
}

type mockStorage struct {
	uploadFn   func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	downloadFn func(ctx context.Context, key string) (io.ReadCloser, string, error)
}

func (m *mockStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, body, size, contentType)
	}
	return nil
}

func (m *mockStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return io.NopCloser(bytes.NewReader(nil)), "", nil
}

func (m *mockStorage) Health(ctx context.Context) error { return nil }

func newTestService(repo Repository, store Storage) *Service {
	cfg := &config.Config{MaxDrawingBytes: 1024}
	return NewService(cfg, repo, store, zerolog.Nop())
}

func TestIngestStoresValidDrawing(t *testing.T) {
	var created *DrawingFile
	var uploadedKey string

	repo := &mockRepository{
		createFn: func(ctx context.Context, file *DrawingFile) error {
			created = file
			return nil
		},
	}
	store := &mockStorage{
		uploadFn: func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
			uploadedKey = key
			return nil
		},
	}

	svc := newTestService(repo, store)
	file, deduped, err := svc.Ingest(context.Background(), IngestRequest{Filename: "bracket.png", Data: pngBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deduped {
		t.Error("fresh upload reported as deduped")
	}
	if created == nil {
		t.Fatal("record was not persisted")
	}
	if file.Type != TypePNG {
		t.Errorf("type = %s, want png", file.Type)
	}
	if file.MimeType != "image/png" {
		t.Errorf("mime = %s, want image/png", file.MimeType)
	}
	if file.Name != "bracket.png" {
		t.Errorf("name = %s, want bracket.png", file.Name)
	}
	if file.Size != int64(len(pngBytes)) {
		t.Errorf("size = %d, want %d", file.Size, len(pngBytes))
	}
	if uploadedKey != file.StorageKey {
		t.Errorf("upload key %s does not match record key %s", uploadedKey, file.StorageKey)
	}
	if file.Sha256 == "" {
		t.Error("content hash missing")
	}
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockStorage{})
	_, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "empty.png"})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestIngestRejectsOversizeFile(t *testing.T) {
	uploaded := false
	store := &mockStorage{
		uploadFn: func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
			uploaded = true
			return nil
		},
	}
	svc := newTestService(&mockRepository{}, store)

	big := append([]byte{}, pngBytes...)
	big = append(big, make([]byte, 2048)...)
	_, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "big.png", Data: big})
	if !errors.Is(err, ErrOversizeFile) {
		t.Fatalf("error = %v, want ErrOversizeFile", err)
	}
	if uploaded {
		t.Error("oversize upload reached storage")
	}
}

func TestIngestRejectsUnsupportedContent(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockStorage{})
	_, _, err := svc.Ingest(context.Background(), IngestRequest{
		Filename: "notes.txt",
		Data:     []byte("meeting notes, not a drawing"),
	})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestIngestRejectsExtensionContentMismatch(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockStorage{})
	_, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "scan.pdf", Data: pngBytes})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestIngestAcceptsPDF(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockStorage{})
	file, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "sheet.pdf", Data: pdfBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Type != TypePDF {
		t.Errorf("type = %s, want pdf", file.Type)
	}
}

func TestIngestAcceptsDXFByExtensionFallback(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockStorage{})
	file, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "plan.dxf", Data: dxfBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Type != TypeDXF {
		t.Errorf("type = %s, want dxf", file.Type)
	}
	if file.MimeType != "image/vnd.dxf" {
		t.Errorf("mime = %s, want image/vnd.dxf", file.MimeType)
	}
}

func TestIngestReusesIdenticalContent(t *testing.T) {
	existing := &DrawingFile{ID: "dwg_existing", Name: "bracket.png", Type: TypePNG}
	uploaded := false
	createdCount := 0

	repo := &mockRepository{
		findByHashFn: func(ctx context.Context, hash string) (*DrawingFile, error) {
			return existing, nil
		},
		createFn: func(ctx context.Context, file *DrawingFile) error {
			createdCount++
			return nil
		},
	}
	store := &mockStorage{
		uploadFn: func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
			uploaded = true
			return nil
		},
	}

	svc := newTestService(repo, store)
	file, deduped, err := svc.Ingest(context.Background(), IngestRequest{Filename: "copy.png", Data: pngBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deduped {
		t.Error("identical content not reported as deduped")
	}
	if file.ID != existing.ID {
		t.Errorf("returned id %s, want existing %s", file.ID, existing.ID)
	}
	if uploaded || createdCount > 0 {
		t.Error("dedup hit still wrote to storage or repository")
	}
}

func TestIngestLeavesNoRecordOnUploadFailure(t *testing.T) {
	createdCount := 0
	repo := &mockRepository{
		createFn: func(ctx context.Context, file *DrawingFile) error {
			createdCount++
			return nil
		},
	}
	store := &mockStorage{
		uploadFn: func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
			return errors.New("disk full")
		},
	}

	svc := newTestService(repo, store)
	_, _, err := svc.Ingest(context.Background(), IngestRequest{Filename: "bracket.png", Data: pngBytes})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if createdCount > 0 {
		t.Error("record created despite failed upload")
	}
}

func TestDownloadFallsBackToRecordMime(t *testing.T) {
	repo := &mockRepository{
		getByIDFn: func(ctx context.Context, id string) (*DrawingFile, error) {
			return &DrawingFile{ID: id, StorageKey: "drawings/x.png", MimeType: "image/png"}, nil
		},
	}
	store := &mockStorage{
		downloadFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader(pngBytes)), "", nil
		},
	}

	svc := newTestService(repo, store)
	reader, mime, err := svc.Download(context.Background(), "dwg_x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reader.Close()
	if mime != "image/png" {
		t.Errorf("mime = %s, want image/png from record", mime)
	}
}
