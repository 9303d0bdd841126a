package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/registry"
)

type sqliteDB struct{ conn *gorm.DB }

func (d sqliteDB) Ping(context.Context) error { return nil }

func (d sqliteDB) WithTx(ctx context.Context, fn func(*gorm.DB) error) error {
	return d.conn.WithContext(ctx).Transaction(fn)
}

type sent struct {
	topic string
	msg   *gcppubsub.Message
}

// scriptedPublisher fails the first failures calls, then succeeds.
type scriptedPublisher struct {
	failures int
	err      error
	sent     []sent
}

func (p *scriptedPublisher) Publish(_ context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	if p.failures > 0 {
		p.failures--
		return "", p.err
	}
	p.sent = append(p.sent, sent{topic: topic, msg: msg})
	return "server-id", nil
}

func (p *scriptedPublisher) Ping(context.Context) error { return nil }

type fixture struct {
	conn  *gorm.DB
	repo  *outbox.Repository
	pub   *scriptedPublisher
	relay *Relay
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	reg, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders", AnalyticsTopic: "analytics"})
	require.NoError(t, err)
	pub := &scriptedPublisher{err: errors.New("deadline exceeded")}
	logg := logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard})
	r, err := New(sqliteDB{conn}, repo, reg, pub, logg, Options{BatchSize: 10, MaxAttempts: maxAttempts})
	require.NoError(t, err)
	return &fixture{conn: conn, repo: repo, pub: pub, relay: r}
}

func (f *fixture) emit(t *testing.T, event outbox.DomainEvent) uuid.UUID {
	t.Helper()
	svc := outbox.NewService(f.repo, nil)
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))
	rows, err := f.repo.ListByAggregate(context.Background(), event.AggregateType, event.AggregateID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	return rows[len(rows)-1].ID
}

func paidEvent(orderID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          payloads.OrderPaidEvent{OrderID: orderID, Source: "webhook", PaidAt: time.Now().UTC()},
	}
}

func (f *fixture) row(t *testing.T, id uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, f.conn.First(&row, "id = ?", id).Error)
	return row
}

func TestDrainPublishesToEveryRoutedTopic(t *testing.T) {
	f := newFixture(t, 3)
	orderID := uuid.New()
	id := f.emit(t, paidEvent(orderID))

	n, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.pub.sent, 2)
	assert.Equal(t, "orders", f.pub.sent[0].topic)
	assert.Equal(t, "analytics", f.pub.sent[1].topic)
	attrs := f.pub.sent[0].msg.Attributes
	assert.Equal(t, "order_paid", attrs[outbox.AttrEventType])
	assert.Equal(t, orderID.String(), attrs[outbox.AttrAggregateID])
	assert.NotEmpty(t, attrs[outbox.AttrEventID])

	assert.NotNil(t, f.row(t, id).PublishedAt)

	n, err = f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainRetriesThenDeadLetters(t *testing.T) {
	f := newFixture(t, 2)
	id := f.emit(t, paidEvent(uuid.New()))
	f.pub.failures = 10

	_, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	row := f.row(t, id)
	assert.Nil(t, row.PublishedAt)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "deadline exceeded")

	_, err = f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.row(t, id).AttemptCount)

	dead, err := f.repo.FindDeadLetter(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, dead)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dead.ErrorReason)
	assert.Equal(t, 1, dead.AttemptCount)

	n, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "parked rows are not claimed again")
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	f := newFixture(t, 5)
	id := uuid.New()
	require.NoError(t, f.repo.Insert(f.conn, models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"x","data":{}}`),
	}))

	_, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.pub.sent)

	dead, err := f.repo.FindDeadLetter(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, dead)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dead.ErrorReason)
	assert.Equal(t, 5, f.row(t, id).AttemptCount)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, 3)
	f.emit(t, paidEvent(uuid.New()))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := f.relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, f.pub.sent, 2)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{PollInterval: 20 * time.Second}.withDefaults()
	assert.Equal(t, defaultBatchSize, o.BatchSize)
	assert.Equal(t, defaultMaxAttempts, o.MaxAttempts)
	assert.Equal(t, 20*time.Second, o.MaxBackoff)
	assert.Equal(t, defaultPublishTimeout, o.PublishTimeout)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil, Options{})
	assert.Error(t, err)
}
