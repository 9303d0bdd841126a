package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Repository persists payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	HasPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID, remotePaymentID string, signature *string, paidAt time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID, remotePaymentID *string, reason string) (int64, error)
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

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("remote_order_id = ?", remoteOrderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) HasPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPaid).
		Count(&count).Error
	return count > 0, err
}

// MarkPaid moves a PENDING payment to PAID. Zero rows means another caller
// already settled it.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, remotePaymentID string, signature *string, paidAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":            enums.PaymentStatusPaid,
			"remote_payment_id": remotePaymentID,
			"signature":         signature,
			"paid_at":           paidAt,
			"updated_at":        paidAt,
		})
	return res.RowsAffected, res.Error
}

// MarkFailed moves a PENDING payment to FAILED.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, remotePaymentID *string, reason string) (int64, error) {
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if remotePaymentID != nil {
		updates["remote_payment_id"] = *remotePaymentID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}
