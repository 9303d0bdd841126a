package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

const defaultOrderExpiryBatch = 100

type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// OrderExpiryJobParams configure the stale order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    staleOrderExpirer
	BatchSize int
}

// NewOrderExpiryJob cancels unpaid orders whose pickup date has passed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultOrderExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		batch:  batch,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	batch  int
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireStale(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired":    expired,
		"batch_size": j.batch,
	})
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
