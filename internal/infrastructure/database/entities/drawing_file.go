package entities

import "time"

// DrawingFile represents the persisted drawing metadata.
type DrawingFile struct {
	ID         string `gorm:"type:varchar(40);primaryKey"`
	Name       string `gorm:"type:varchar(255);not null"`
	StorageKey string `gorm:"type:varchar(255);not null"`
	Size       int64  `gorm:"not null"`
	Type       string `gorm:"type:varchar(8);not null"`
	MimeType   string `gorm:"type:varchar(64);not null"`
	Sha256     string `gorm:"type:char(64);uniqueIndex;not null"`
	UploadedAt time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (DrawingFile) TableName() string {
	return "drawing_files"
}
