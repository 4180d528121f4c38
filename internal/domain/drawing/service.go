package drawing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/utils/drawid"
)

// Ingestion failures surfaced to the caller. Neither is retried.
var (
	ErrInvalidFormat = errors.New("unsupported or mismatched drawing format")
	ErrOversizeFile  = errors.New("drawing exceeds the maximum allowed size")
	ErrNotFound      = errors.New("drawing not found")
)

// allowedMIMEs maps sniffed MIME types to the normalized drawing type and
// its canonical storage extension.
var allowedMIMEs = map[string]FileType{
	"image/jpeg":      TypeJPEG,
	"image/png":       TypePNG,
	"application/pdf": TypePDF,
	"image/vnd.dwg":   TypeDWG,
	"image/vnd.dxf":   TypeDXF,
}

// extensionTypes cross-checks the claimed filename extension against the
// sniffed content type.
var extensionTypes = map[string]FileType{
	".jpg":  TypeJPEG,
	".jpeg": TypeJPEG,
	".png":  TypePNG,
	".pdf":  TypePDF,
	".dwg":  TypeDWG,
	".dxf":  TypeDXF,
}

// Repository defines persistence operations needed by the ingestor.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*DrawingFile, error)
	Create(ctx context.Context, file *DrawingFile) error
	GetByID(ctx context.Context, id string) (*DrawingFile, error)
}

// Storage defines drawing blob storage operations.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Health(ctx context.Context) error
}

// Service validates and normalizes uploads into immutable DrawingFile records.
type Service struct {
	cfg     *config.Config
	repo    Repository
	storage Storage
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, storage Storage, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		storage: storage,
		log:     log.With().Str("component", "drawing-service").Logger(),
	}
}

// Ingest stores a drawing and returns its record. The bool is true when the
// content was bit-identical to an existing drawing and the stored record was
// reused instead of duplicated. Validation failures leave no side effects.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*DrawingFile, bool, error) {
	if len(req.Data) == 0 {
		return nil, false, fmt.Errorf("%w: file is empty", ErrInvalidFormat)
	}
	if int64(len(req.Data)) > s.cfg.MaxDrawingBytes {
		return nil, false, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrOversizeFile, len(req.Data), s.cfg.MaxDrawingBytes)
	}

	fileType, mimeType, err := sniffType(req.Filename, req.Data)
	if err != nil {
		return nil, false, err
	}

	sum := sha256.Sum256(req.Data)
	hash := fmt.Sprintf("%x", sum[:])

	if existing, err := s.repo.FindByHash(ctx, hash); err != nil {
		return nil, false, err
	} else if existing != nil {
		s.log.Debug().Str("drawing_id", existing.ID).Msg("re-ingest of identical content, reusing record")
		return existing, true, nil
	}

	id := drawid.NewDrawing()
	key := fmt.Sprintf("drawings/%s.%s", id, fileType)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(req.Data), int64(len(req.Data)), mimeType); err != nil {
		return nil, false, err
	}

	file := &DrawingFile{
		ID:         id,
		Name:       filepath.Base(req.Filename),
		StorageKey: key,
		Size:       int64(len(req.Data)),
		Type:       fileType,
		MimeType:   mimeType,
		Sha256:     hash,
		UploadedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, file); err != nil {
		return nil, false, err
	}

	s.log.Info().
		Str("drawing_id", id).
		Str("type", string(fileType)).
		Int64("bytes", file.Size).
		Msg("drawing ingested")

	return file, false, nil
}

// Get returns the drawing record by id.
func (s *Service) Get(ctx context.Context, id string) (*DrawingFile, error) {
	return s.repo.GetByID(ctx, id)
}

// Download streams the stored drawing bytes.
func (s *Service) Download(ctx context.Context, id string) (io.ReadCloser, string, error) {
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	reader, mime, err := s.storage.Download(ctx, file.StorageKey)
	if err != nil {
		return nil, "", err
	}
	if mime == "" {
		mime = file.MimeType
	}
	return reader, mime, nil
}

// sniffType resolves the drawing type from content, falling back to the
// extension for DXF, which is plain text and not always sniffable. A
// mismatch between a recognized extension and the sniffed content is
// rejected rather than trusting either side.
func sniffType(filename string, data []byte) (FileType, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extType, extKnown := extensionTypes[ext]

	detected := mimetype.Detect(data)
	sniffed, sniffKnown := lookupMIME(detected)

	switch {
	case sniffKnown && extKnown && sniffed != extType:
		return "", "", fmt.Errorf("%w: extension %s does not match content type %s",
			ErrInvalidFormat, ext, detected.String())
	case sniffKnown:
		return sniffed, detected.String(), nil
	case extKnown && extType == TypeDXF && looksLikeDXF(data):
		return TypeDXF, "image/vnd.dxf", nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrInvalidFormat, detected.String())
	}
}

func lookupMIME(detected *mimetype.MIME) (FileType, bool) {
	for mime := detected; mime != nil; mime = mime.Parent() {
		if t, ok := allowedMIMEs[mime.String()]; ok {
			return t, true
		}
	}
	return "", false
}

// looksLikeDXF checks for the group-code header every ASCII DXF starts with.
func looksLikeDXF(data []byte) bool {
	head := data
	if len(head) > 64 {
		head = head[:64]
	}
	trimmed := strings.TrimLeft(string(head), " \t\r\n")
	return strings.HasPrefix(trimmed, "0") && strings.Contains(string(head), "SECTION")
}
