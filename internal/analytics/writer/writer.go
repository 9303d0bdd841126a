// Package writer streams order analytics rows into BigQuery.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/washfold-backend/pkg/bigquery"
)

// Options tune batching and the insert retry schedule. Zero values pick
// the defaults below.
type Options struct {
	Table       string
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (o Options) withDefaults() Options {
	o.Table = strings.TrimSpace(o.Table)
	if o.BatchSize <= 0 {
		o.BatchSize = 1
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 2 * time.Second
	}
	o.MaxBackoff = max(o.MaxBackoff, o.BaseBackoff)
	return o
}

type inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer buffers rows until BatchSize is reached. Rows stay buffered when
// an insert fails so the next flush retries them.
type Writer struct {
	client inserter
	opts   Options

	mu      sync.Mutex
	pending []types.OrderEventRow
}

func New(client *pkgbigquery.Client, opts Options) (*Writer, error) {
	if client == nil {
		return nil, errors.New("writer: bigquery client required")
	}
	return newWriter(client, opts)
}

func newWriter(client inserter, opts Options) (*Writer, error) {
	opts = opts.withDefaults()
	if opts.Table == "" {
		return nil, errors.New("writer: table is required")
	}
	return &Writer{client: client, opts: opts}, nil
}

func (w *Writer) InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.opts.BatchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *Writer) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.pending))
	for i := range w.pending {
		rows = append(rows, &w.pending[i])
	}

	backoff := retry.NewExponential(w.opts.BaseBackoff)
	backoff = retry.WithCappedDuration(w.opts.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(w.opts.MaxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, w.opts.Table, rows)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %d row(s) into %s: %w", len(rows), w.opts.Table, err)
	}
	w.pending = w.pending[:0]
	return nil
}

// transient reports whether every failure inside err is worth retrying.
// Batch errors are retried only when all of their parts are.
func transient(err error) bool {
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return len(multi) > 0 && !slices.ContainsFunc(multi, func(e error) bool { return !transient(e) })
	}
	var put cbigquery.PutMultiError
	if errors.As(err, &put) {
		return len(put) > 0 && !slices.ContainsFunc(put, func(r cbigquery.RowInsertionError) bool { return !transient(r.Errors) })
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

// EncodeJSON turns a payload into a BigQuery JSON column value. Empty
// payloads become NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
