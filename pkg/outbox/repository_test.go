package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

func queueOrderEvent(t *testing.T, db *gorm.DB, svc *Service, eventType enums.OutboxEventType, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: uuid.New(), Role: "customer"},
			Data:          map[string]string{"order_id": orderID.String()},
		})
	}))
}

func TestEmitStoresEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	orderID := uuid.New()

	queueOrderEvent(t, db, NewService(repo, nil), enums.EventOrderCreated, orderID)

	rows, err := repo.ListByAggregate(context.Background(), enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Nil(t, rows[0].PublishedAt)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.False(t, env.OccurredAt.IsZero())
	require.NotNil(t, env.Actor)
	assert.Equal(t, "customer", env.Actor.Role)
	assert.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(env.Data))
}

func TestEmitRejectsMissingTxAndBadData(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	assert.ErrorIs(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated}), errTxRequired)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          make(chan int),
		})
	})
	assert.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	for range 2 {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Data:          map[string]string{"source": "verify"},
			})
		}))
	}

	exists, err := repo.Exists(context.Background(), enums.EventOrderPaid, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	assert.True(t, exists)
	rows, err := repo.ListByAggregate(context.Background(), enums.AggregateOrder, orderID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClaimBatchBookkeeping(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	for range 3 {
		queueOrderEvent(t, db, svc, enums.EventOrderCreated, uuid.New())
	}

	var claimed []models.OutboxEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		if claimed, err = repo.ClaimBatch(tx, 10, 3); err != nil {
			return err
		}
		require.Len(t, claimed, 3)
		if err := repo.MarkPublished(tx, claimed[0].ID); err != nil {
			return err
		}
		if err := repo.RecordFailure(tx, claimed[1].ID, errors.New("topic unavailable")); err != nil {
			return err
		}
		return repo.Park(tx, claimed[2].ID, errors.New("bad payload"), 3)
	}))

	pending, err := repo.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	var retry []models.OutboxEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		retry, err = repo.ClaimBatch(tx, 10, 3)
		return err
	}))
	require.Len(t, retry, 1)
	assert.Equal(t, claimed[1].ID, retry[0].ID)
	assert.Equal(t, 1, retry[0].AttemptCount)
	require.NotNil(t, retry[0].LastError)
	assert.Equal(t, "topic unavailable", *retry[0].LastError)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(time.Minute), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	assert.ErrorIs(t, repo.MarkPublished(nil, claimed[1].ID), errTxRequired)
}

func TestDeadLetters(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	eventID := uuid.New()
	msg := strings.Repeat("x", maxErrorLen+50)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.DeadLetter(tx, models.OutboxDLQ{
			ID:            uuid.New(),
			EventID:       eventID,
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	}))

	found, err := repo.FindDeadLetter(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxErrorLen)
	assert.False(t, found.FailedAt.IsZero())

	missing, err := repo.FindDeadLetter(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := repo.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
