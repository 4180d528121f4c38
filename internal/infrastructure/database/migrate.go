package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/draftlab/drawing-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.DrawingFile{},
		&entities.AnalysisResult{},
	); err != nil {
		return err
	}
	log.Info().Msg("applied drawing schema migrations")
	return nil
}
