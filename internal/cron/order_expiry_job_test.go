package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

type fakeExpirer struct {
	limit   int
	expired int
	err     error
}

func (f *fakeExpirer) ExpireStale(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return f.expired, f.err
}

func TestOrderExpiryJobUsesBatchSize(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders:    expirer,
		BatchSize: 25,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 25, expirer.limit)
	assert.Equal(t, "order-expiry", job.Name())
}

func TestOrderExpiryJobDefaultsAndErrors(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders: expirer,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, defaultOrderExpiryBatch, expirer.limit)

	_, err = NewOrderExpiryJob(OrderExpiryJobParams{Orders: expirer})
	assert.Error(t, err)
}
