package result

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/infrastructure/database/entities"
)

// Repository handles analysis result persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save stores a result and removes superseded results for the same file in
// one transaction, so a file always exposes a single authoritative result.
func (r *Repository) Save(ctx context.Context, result *analysis.AnalysisResult) error {
	entity, err := mapDomain(result)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("file_id = ? AND id <> ?", result.FileID, result.ID).
			Delete(&entities.AnalysisResult{}).Error; err != nil {
			return fmt.Errorf("delete superseded results: %w", err)
		}
		if err := tx.Create(&entity).Error; err != nil {
			return fmt.Errorf("create result: %w", err)
		}
		return nil
	})
}

// GetAll returns every stored result ordered by analysis time.
func (r *Repository) GetAll(ctx context.Context) ([]analysis.AnalysisResult, error) {
	var rows []entities.AnalysisResult
	if err := r.db.WithContext(ctx).Order("analyzed_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	results := make([]analysis.AnalysisResult, 0, len(rows))
	for i := range rows {
		result, err := mapEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*analysis.AnalysisResult, error) {
	var entity entities.AnalysisResult
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: result %s", analysis.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get result by id: %w", err)
	}
	return mapEntity(&entity)
}

// GetLatestByFile returns the most recent result for a file.
func (r *Repository) GetLatestByFile(ctx context.Context, fileID string) (*analysis.AnalysisResult, error) {
	var entity entities.AnalysisResult
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("analyzed_at DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no result for file %s", analysis.ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("get latest result: %w", err)
	}
	return mapEntity(&entity)
}

// UpdateFields applies a partial edit to a stored result. Nil members of
// fields are left unchanged.
func (r *Repository) UpdateFields(ctx context.Context, id string, fields analysis.UpdateFields) (*analysis.AnalysisResult, error) {
	updates := map[string]any{}
	if fields.Title != nil {
		updates["title"] = *fields.Title
	}
	if fields.DrawingNumber != nil {
		updates["drawing_number"] = *fields.DrawingNumber
	}
	if fields.Dimensions != nil {
		data, err := json.Marshal(fields.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("marshal dimensions: %w", err)
		}
		updates["dimensions"] = data
	}
	if fields.PartsList != nil {
		data, err := json.Marshal(fields.PartsList)
		if err != nil {
			return nil, fmt.Errorf("marshal parts list: %w", err)
		}
		updates["parts_list"] = data
	}
	if fields.Materials != nil {
		data, err := json.Marshal(fields.Materials)
		if err != nil {
			return nil, fmt.Errorf("marshal materials: %w", err)
		}
		updates["materials"] = data
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&entities.AnalysisResult{}).
			Where("id = ?", id).
			Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update result: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("%w: result %s", analysis.ErrNotFound, id)
		}
	}
	return r.GetByID(ctx, id)
}

func mapDomain(result *analysis.AnalysisResult) (entities.AnalysisResult, error) {
	dims, err := json.Marshal(result.Dimensions)
	if err != nil {
		return entities.AnalysisResult{}, fmt.Errorf("marshal dimensions: %w", err)
	}
	parts, err := json.Marshal(result.PartsList)
	if err != nil {
		return entities.AnalysisResult{}, fmt.Errorf("marshal parts list: %w", err)
	}
	materials, err := json.Marshal(result.Materials)
	if err != nil {
		return entities.AnalysisResult{}, fmt.Errorf("marshal materials: %w", err)
	}
	return entities.AnalysisResult{
		ID:            result.ID,
		FileID:        result.FileID,
		JobID:         result.JobID,
		Dimensions:    dims,
		PartsList:     parts,
		Materials:     materials,
		Title:         result.Title,
		DrawingNumber: result.DrawingNumber,
		AnalyzedAt:    result.AnalyzedAt,
		Status:        string(result.Status),
		Error:         result.Error,
	}, nil
}

func mapEntity(entity *entities.AnalysisResult) (*analysis.AnalysisResult, error) {
	result := analysis.AnalysisResult{
		ID:            entity.ID,
		FileID:        entity.FileID,
		JobID:         entity.JobID,
		Dimensions:    []analysis.Dimension{},
		PartsList:     []analysis.Part{},
		Materials:     []analysis.Material{},
		Title:         entity.Title,
		DrawingNumber: entity.DrawingNumber,
		AnalyzedAt:    entity.AnalyzedAt,
		Status:        analysis.ResultStatus(entity.Status),
		Error:         entity.Error,
	}
	if len(entity.Dimensions) > 0 {
		if err := json.Unmarshal(entity.Dimensions, &result.Dimensions); err != nil {
			return nil, fmt.Errorf("unmarshal dimensions: %w", err)
		}
	}
	if len(entity.PartsList) > 0 {
		if err := json.Unmarshal(entity.PartsList, &result.PartsList); err != nil {
			return nil, fmt.Errorf("unmarshal parts list: %w", err)
		}
	}
	if len(entity.Materials) > 0 {
		if err := json.Unmarshal(entity.Materials, &result.Materials); err != nil {
			return nil, fmt.Errorf("unmarshal materials: %w", err)
		}
	}
	return &result, nil
}
