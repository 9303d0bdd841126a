package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/washfold-backend/pkg/bigquery"
)

type scriptedInserter struct {
	script []error
	calls  []int
}

func (s *scriptedInserter) InsertRows(_ context.Context, _ string, rows []any) error {
	s.calls = append(s.calls, len(rows))
	if len(s.script) == 0 {
		return nil
	}
	err := s.script[0]
	s.script = s.script[1:]
	return err
}

func newTestWriter(t *testing.T, batch int, script ...error) (*Writer, *scriptedInserter) {
	t.Helper()
	ins := &scriptedInserter{script: script}
	w, err := newWriter(ins, Options{
		Table:       "order_events",
		BatchSize:   batch,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	})
	require.NoError(t, err)
	return w, ins
}

func row(id string) types.OrderEventRow {
	return types.OrderEventRow{EventID: id}
}

func TestNewRequiresClientAndTable(t *testing.T) {
	_, err := New(nil, Options{Table: "order_events"})
	assert.Error(t, err)
	_, err = New(&pkgbigquery.Client{}, Options{Table: "  "})
	assert.Error(t, err)

	w, err := New(&pkgbigquery.Client{}, Options{Table: "order_events"})
	require.NoError(t, err)
	assert.Equal(t, 1, w.opts.BatchSize)
	assert.Equal(t, 3, w.opts.MaxAttempts)
	assert.Equal(t, 2*time.Second, w.opts.MaxBackoff)
}

func TestTransientFailureIsRetried(t *testing.T) {
	w, ins := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusServiceUnavailable})

	require.NoError(t, w.InsertOrderEvent(context.Background(), row("e1")))
	assert.Equal(t, []int{1, 1}, ins.calls)
	assert.Empty(t, w.pending)
}

func TestPermanentFailureKeepsRowsBuffered(t *testing.T) {
	w, ins := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusBadRequest})

	err := w.InsertOrderEvent(context.Background(), row("e1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_events")
	assert.Len(t, ins.calls, 1)
	assert.Len(t, w.pending, 1)

	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, w.pending)
}

func TestRetriesStopAtMaxAttempts(t *testing.T) {
	busy := status.Error(codes.Unavailable, "backend busy")
	w, ins := newTestWriter(t, 1, busy, busy, busy, busy)

	err := w.InsertOrderEvent(context.Background(), row("e1"))
	require.Error(t, err)
	assert.Len(t, ins.calls, 3)
}

func TestBatchingAndFlush(t *testing.T) {
	w, ins := newTestWriter(t, 2)
	ctx := context.Background()

	require.NoError(t, w.InsertOrderEvent(ctx, row("e1")))
	assert.Empty(t, ins.calls)
	require.NoError(t, w.InsertOrderEvent(ctx, row("e2")))
	assert.Equal(t, []int{2}, ins.calls)

	require.NoError(t, w.InsertOrderEvent(ctx, row("e3")))
	require.NoError(t, w.Flush(ctx))
	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, []int{2, 1}, ins.calls)
}

func TestTransientClassification(t *testing.T) {
	unavailable := &googleapi.Error{Code: http.StatusServiceUnavailable}
	invalid := &googleapi.Error{Code: http.StatusBadRequest}

	assert.True(t, transient(unavailable))
	assert.False(t, transient(invalid))
	assert.True(t, transient(status.Error(codes.DeadlineExceeded, "slow")))
	assert.False(t, transient(status.Error(codes.InvalidArgument, "bad row")))
	assert.False(t, transient(errors.New("plain")))

	assert.True(t, transient(cbigquery.MultiError{unavailable, unavailable}))
	assert.False(t, transient(cbigquery.MultiError{unavailable, invalid}))
	assert.False(t, transient(cbigquery.MultiError{}))
	assert.True(t, transient(cbigquery.PutMultiError{{RowID: "1", Errors: cbigquery.MultiError{unavailable}}}))
	assert.False(t, transient(cbigquery.PutMultiError{{RowID: "1", Errors: cbigquery.MultiError{invalid}}}))
}

func TestEncodeJSON(t *testing.T) {
	value, err := EncodeJSON(map[string]any{"order_number": "WF-2026-000001"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_number":"WF-2026-000001"}`, value.JSONVal)

	for _, empty := range []any{nil, json.RawMessage{}, []byte{}} {
		value, err = EncodeJSON(empty)
		require.NoError(t, err)
		assert.False(t, value.Valid)
	}

	value, err = EncodeJSON(json.RawMessage(`{"status":"PAID"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"status":"PAID"}`, value.JSONVal)

	_, err = EncodeJSON(make(chan int))
	assert.Error(t, err)
}
