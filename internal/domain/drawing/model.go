package drawing

import "time"

// FileType is the normalized drawing format accepted by the pipeline.
type FileType string

const (
	TypeJPEG FileType = "jpeg"
	TypePNG  FileType = "png"
	TypePDF  FileType = "pdf"
	TypeDWG  FileType = "dwg"
	TypeDXF  FileType = "dxf"
)

// IsRaster reports whether the drawing is a bitmap image.
func (t FileType) IsRaster() bool {
	return t == TypeJPEG || t == TypePNG
}

// DrawingFile represents an ingested drawing. Immutable once created.
type DrawingFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StorageKey string    `json:"storage_key"`
	Size       int64     `json:"size"`
	Type       FileType  `json:"type"`
	MimeType   string    `json:"mime"`
	Sha256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IngestRequest carries one raw upload into the ingestor.
type IngestRequest struct {
	Filename string
	Data     []byte
}
