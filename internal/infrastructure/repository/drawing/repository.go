package drawing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/infrastructure/database/entities"
)

// Repository handles drawing file persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByHash(ctx context.Context, hash string) (*domain.DrawingFile, error) {
	var entity entities.DrawingFile
	err := r.db.WithContext(ctx).Where("sha256 = ?", hash).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find drawing by hash: %w", err)
	}
	file := mapEntity(entity)
	return &file, nil
}

func (r *Repository) Create(ctx context.Context, file *domain.DrawingFile) error {
	entity := entities.DrawingFile{
		ID:         file.ID,
		Name:       file.Name,
		StorageKey: file.StorageKey,
		Size:       file.Size,
		Type:       string(file.Type),
		MimeType:   file.MimeType,
		Sha256:     file.Sha256,
		UploadedAt: file.UploadedAt,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("create drawing: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.DrawingFile, error) {
	var entity entities.DrawingFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get drawing by id: %w", err)
	}
	file := mapEntity(entity)
	return &file, nil
}

func mapEntity(entity entities.DrawingFile) domain.DrawingFile {
	return domain.DrawingFile{
		ID:         entity.ID,
		Name:       entity.Name,
		StorageKey: entity.StorageKey,
		Size:       entity.Size,
		Type:       domain.FileType(entity.Type),
		MimeType:   entity.MimeType,
		Sha256:     entity.Sha256,
		UploadedAt: entity.UploadedAt,
	}
}
