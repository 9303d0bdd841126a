package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	"github.com/angelmondragon/washfold-backend/internal/analytics/writer"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by the row builders.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// rowBuilder fills the event specific columns of a row from a decoded payload.
type rowBuilder func(row *types.OrderEventRow, payload any) error

// Router turns order lifecycle envelopes into order_events rows.
type Router struct {
	builders map[enums.OutboxEventType]rowBuilder
	writer   Writer
	logg     *logger.Logger
}

func NewRouter(w Writer, logg *logger.Logger) (*Router, error) {
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{
		builders: defaultBuilders(),
		writer:   w,
		logg:     logg,
	}, nil
}

// Handle decodes the payload, builds the row and writes it.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	build, ok := r.builders[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload, err := registry.DecodePayload(envelope.EventType, envelope.Version, envelope.Payload)
	if err != nil {
		return err
	}

	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return err
	}
	row := types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		Payload:    encoded,
	}
	if err := build(&row, payload); err != nil {
		return err
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   deref(row.OrderID),
	})
	if err := r.writer.InsertOrderEvent(logCtx, row); err != nil {
		r.logg.Error(logCtx, "failed to insert order event row", err)
		return err
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
