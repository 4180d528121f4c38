package entities

import "time"

// AnalysisResult represents the persisted extraction for one drawing. The
// collection columns are JSON-serialized; the pipeline reads and writes
// whole results, never individual entries.
type AnalysisResult struct {
	ID            string `gorm:"type:varchar(40);primaryKey"`
	FileID        string `gorm:"type:varchar(40);not null;index"`
	JobID         string `gorm:"type:varchar(40);not null"`
	Dimensions    []byte `gorm:"type:jsonb"`
	PartsList     []byte `gorm:"type:jsonb"`
	Materials     []byte `gorm:"type:jsonb"`
	Title         string `gorm:"type:varchar(255)"`
	DrawingNumber string `gorm:"type:varchar(128)"`
	AnalyzedAt    time.Time
	Status        string    `gorm:"type:varchar(16);not null"`
	Error         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
