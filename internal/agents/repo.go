package agents

import (
	"context"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists delivery agents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, agent *models.Agent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Agent, error)
	List(ctx context.Context, status *enums.AgentStatus) ([]models.Agent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	IncrementDeliveries(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) List(ctx context.Context, status *enums.AgentStatus) ([]models.Agent, error) {
	q := r.db.WithContext(ctx).Model(&models.Agent{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Agent
	err := q.Order("name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Agent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) IncrementDeliveries(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_deliveries": gorm.Expr("total_deliveries + 1"),
			"updated_at":       time.Now().UTC(),
		}).Error
}
