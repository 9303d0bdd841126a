package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

func seedOrder(t *testing.T, repo Repository, customerID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "WF-2026-" + uuid.NewString()[:6],
		CustomerID:        customerID,
		PickupAddressID:   uuid.New(),
		DeliveryAddressID: uuid.New(),
		PickupDate:        dbtypes.NewDate(createdAt),
		PickupWindow:      "MORNING",
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		Currency:          enums.CurrencyINR,
		Subtotal:          decimal.NewFromInt(100),
		AddonCharges:      decimal.Zero,
		TaxAmount:         decimal.NewFromInt(18),
		DiscountAmount:    decimal.Zero,
		TotalAmount:       decimal.NewFromInt(118),
		CreatedAt:         createdAt,
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	return order
}

func TestNextOrderSequenceIncrements(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	first, err := repo.NextOrderSequence(ctx)
	require.NoError(t, err)
	second, err := repo.NextOrderSequence(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)
	assert.EqualValues(t, 2, second)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), time.Now().UTC())

	affected, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPickupAssigned, enums.OrderStatusPickedUp, nil)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPickupAssigned, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickupAssigned, stored.Status)
}

func TestFindExpiredPendingSkipsPaidAndFutureOrders(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, time.October, 10, 9, 0, 0, 0, time.UTC)

	stale := seedOrder(t, repo, uuid.New(), base)
	paid := seedOrder(t, repo, uuid.New(), base)
	require.NoError(t, repo.Update(ctx, paid.ID, map[string]any{"payment_status": enums.PaymentStatusPaid}))
	seedOrder(t, repo, uuid.New(), base.AddDate(0, 0, 10))

	rows, err := repo.FindExpiredPending(ctx, dbtypes.NewDate(base.AddDate(0, 0, 1)), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}
