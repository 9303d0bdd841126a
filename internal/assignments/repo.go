package assignments

import (
	"context"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const activeLegIndex = "idx_assignments_active_leg"

// Repository persists assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	FindActive(ctx context.Context, orderID uuid.UUID, kind enums.AssignmentType) (*models.Assignment, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, status *enums.AssignmentStatus) ([]models.Assignment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Assignment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AssignmentStatus, extra map[string]any) (int64, error)
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

func (r *repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var row models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindActive returns the ASSIGNED or ACCEPTED assignment for the leg, or
// gorm.ErrRecordNotFound.
func (r *repository) FindActive(ctx context.Context, orderID uuid.UUID, kind enums.AssignmentType) (*models.Assignment, error) {
	var row models.Assignment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND assignment_type = ? AND status IN ?", orderID, kind, enums.ActiveAssignmentStatuses).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID, status *enums.AssignmentStatus) ([]models.Assignment, error) {
	q := r.db.WithContext(ctx).Where("agent_id = ?", agentID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Assignment
	err := q.Order("assigned_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AssignmentStatus, extra map[string]any) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
