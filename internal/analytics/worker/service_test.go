package worker

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

	"github.com/angelmondragon/washfold-backend/internal/analytics/router"
	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
)

type recordingHandler struct {
	got []types.Envelope
	err error
}

func (h *recordingHandler) Handle(_ context.Context, env types.Envelope) error {
	h.got = append(h.got, env)
	return h.err
}

type memoryClaims struct {
	claimed  map[string]bool
	released []string
	err      error
}

func (m *memoryClaims) Claim(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.claimed[id] {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

func (m *memoryClaims) Release(_ context.Context, id string) error {
	delete(m.claimed, id)
	m.released = append(m.released, id)
	return nil
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *gcppubsub.Message)) error {
	return nil
}

func newTestService(t *testing.T, handler *recordingHandler) (*Service, *memoryClaims) {
	t.Helper()
	claims := &memoryClaims{claimed: map[string]bool{}}
	svc, err := NewService(noopReceiver{}, handler, claims, logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, claims
}

func orderMessage(t *testing.T, eventID string, eventType string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	})
	require.NoError(t, err)
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: data,
		Attributes: map[string]string{
			outbox.AttrEventType:     eventType,
			outbox.AttrAggregateType: "order",
			outbox.AttrAggregateID:   "order-1",
		},
	}
}

func TestDecodeMessage(t *testing.T) {
	env, err := decodeMessage(orderMessage(t, "evt-1", "order_created"))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, enums.EventOrderCreated, env.EventType)
	assert.Equal(t, enums.AggregateOrder, env.AggregateType)
	assert.Equal(t, "order-1", env.AggregateID)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), env.OccurredAt)
}

func TestDecodeMessageFallsBackToAttributes(t *testing.T) {
	msg := &gcppubsub.Message{
		Data: []byte(`{"version":1,"data":{}}`),
		Attributes: map[string]string{
			outbox.AttrEventID:       "evt-attr",
			outbox.AttrEventType:     "order_paid",
			outbox.AttrAggregateType: "order",
			outbox.AttrAggregateID:   "order-2",
			outbox.AttrCreatedAt:     "2026-03-02T10:00:00Z",
		},
	}
	env, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "evt-attr", env.EventID)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), env.OccurredAt)
}

func TestProcessHandlesOnce(t *testing.T) {
	handler := &recordingHandler{}
	svc, _ := newTestService(t, handler)
	msg := orderMessage(t, "evt-1", "order_created")

	assert.True(t, svc.process(context.Background(), msg))
	assert.True(t, svc.process(context.Background(), msg))
	assert.Len(t, handler.got, 1)
}

func TestProcessHandlerFailureReleasesAndNacks(t *testing.T) {
	handler := &recordingHandler{err: errors.New("bigquery unavailable")}
	svc, claims := newTestService(t, handler)

	assert.False(t, svc.process(context.Background(), orderMessage(t, "evt-2", "order_paid")))
	assert.Equal(t, []string{"evt-2"}, claims.released)
	assert.False(t, claims.claimed["evt-2"])
}

func TestProcessAcks(t *testing.T) {
	cases := map[string]struct {
		msg     func(t *testing.T) *gcppubsub.Message
		handler *recordingHandler
		calls   int
	}{
		"malformed data": {
			msg:     func(*testing.T) *gcppubsub.Message { return &gcppubsub.Message{Data: []byte("not json")} },
			handler: &recordingHandler{},
		},
		"unknown event type": {
			msg:     func(t *testing.T) *gcppubsub.Message { return orderMessage(t, "evt-3", "license_approved") },
			handler: &recordingHandler{},
		},
		"untracked event type": {
			msg:     func(t *testing.T) *gcppubsub.Message { return orderMessage(t, "evt-4", "coupon_applied") },
			handler: &recordingHandler{err: router.ErrUnsupportedEventType},
			calls:   1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, claims := newTestService(t, tc.handler)
			assert.True(t, svc.process(context.Background(), tc.msg(t)))
			assert.Len(t, tc.handler.got, tc.calls)
			assert.Empty(t, claims.released)
		})
	}
}

func TestProcessClaimErrorNacks(t *testing.T) {
	handler := &recordingHandler{}
	svc, claims := newTestService(t, handler)
	claims.err = errors.New("redis down")

	assert.False(t, svc.process(context.Background(), orderMessage(t, "evt-5", "order_created")))
	assert.Empty(t, handler.got)
}

func TestNewServiceValidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
	_, err := NewService(nil, &recordingHandler{}, &memoryClaims{}, logg)
	assert.Error(t, err)
	_, err = NewService(noopReceiver{}, nil, &memoryClaims{}, logg)
	assert.Error(t, err)
}
