package address

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/errors"
)

// Directory answers address ownership questions for order placement.
type Directory interface {
	RequireOwned(ctx context.Context, ownerID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]models.Address, error)
}

type directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return &directory{db: db}
}

// RequireOwned loads the addresses and fails with NOT_FOUND when any id is
// missing or belongs to someone else.
func (d *directory) RequireOwned(ctx context.Context, ownerID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]models.Address, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "user identity missing")
	}
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, errors.New(errors.CodeValidation, "address id is required")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var rows []models.Address
	if err := d.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, unique).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load addresses")
	}

	out := make(map[uuid.UUID]models.Address, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	for _, id := range unique {
		if _, ok := out[id]; !ok {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("address not found with id: %s", id))
		}
	}
	return out, nil
}
