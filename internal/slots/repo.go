package slots

import (
	"context"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists slot rows. Booking counters only move through the
// conditional updates below.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, slot *models.Slot) error
	Find(ctx context.Context, date dbtypes.Date, window string) (*models.Slot, error)
	ListByDate(ctx context.Context, date dbtypes.Date) ([]models.Slot, error)
	IncrementBookings(ctx context.Context, date dbtypes.Date, window string) (int64, error)
	DecrementBookings(ctx context.Context, date dbtypes.Date, window string) (int64, error)
	Update(ctx context.Context, id uuid.UUID, maxBookings *int, updates map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a slots repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Ensure inserts the slot unless a row for (date, window) already exists.
func (r *repository) Ensure(ctx context.Context, slot *models.Slot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_date"}, {Name: "time_window"}},
			DoNothing: true,
		}).
		Create(slot).Error
}

func (r *repository) Find(ctx context.Context, date dbtypes.Date, window string) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).
		Where("slot_date = ? AND time_window = ?", date, window).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListByDate(ctx context.Context, date dbtypes.Date) ([]models.Slot, error) {
	var rows []models.Slot
	if err := r.db.WithContext(ctx).
		Where("slot_date = ?", date).
		Order("time_window ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) IncrementBookings(ctx context.Context, date dbtypes.Date, window string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("slot_date = ? AND time_window = ? AND enabled = ? AND current_bookings < max_capacity", date, window, true).
		Updates(map[string]any{
			"current_bookings": gorm.Expr("current_bookings + 1"),
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) DecrementBookings(ctx context.Context, date dbtypes.Date, window string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("slot_date = ? AND time_window = ? AND current_bookings > 0", date, window).
		Updates(map[string]any{
			"current_bookings": gorm.Expr("current_bookings - 1"),
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// Update applies updates to one slot. A non-nil maxBookings makes the write
// conditional on current_bookings not exceeding it.
func (r *repository) Update(ctx context.Context, id uuid.UUID, maxBookings *int, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	updates["updated_at"] = time.Now().UTC()
	q := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ?", id)
	if maxBookings != nil {
		q = q.Where("current_bookings <= ?", *maxBookings)
	}
	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}
