package orders

import (
	"context"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateAddons(ctx context.Context, addons []models.OrderAddon) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	NextOrderSequence(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error)
	FindExpiredPending(ctx context.Context, before dbtypes.Date, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ApplyDiscount(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	RefundPayments(ctx context.Context, orderID uuid.UUID) (int64, error)
}
