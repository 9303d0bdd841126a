package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
)

// Catalog is the read-only price lookup used while quoting.
type Catalog interface {
	ServicesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.CatalogService, error)
	ClothTypesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ClothType, error)
	AddonsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Addon, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) Catalog {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ServicesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.CatalogService, error) {
	var rows []models.CatalogService
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.CatalogService, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *catalogRepository) ClothTypesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ClothType, error) {
	var rows []models.ClothType
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.ClothType, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *catalogRepository) AddonsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Addon, error) {
	out := map[uuid.UUID]models.Addon{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Addon
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
