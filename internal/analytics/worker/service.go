package worker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/washfold-backend/internal/analytics/router"
	"github.com/angelmondragon/washfold-backend/internal/analytics/types"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
)

// ConsumerName scopes the analytics idempotency records.
const ConsumerName = "analytics"

type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type claimer interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Service feeds the analytics subscription into a Handler. Each event id is
// handled at most once; a failed handle releases the claim and nacks so
// Pub/Sub redelivers.
type Service struct {
	sub     receiver
	handler Handler
	claims  claimer
	logg    *logger.Logger
}

func NewService(sub receiver, handler Handler, claims claimer, logg *logger.Logger) (*Service, error) {
	switch {
	case sub == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case claims == nil:
		return nil, errors.New("idempotency tracker is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{sub: sub, handler: handler, claims: claims, logg: logg}, nil
}

func (s *Service) Run(ctx context.Context) error {
	return s.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if s.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether msg should be acked.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return true
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     env.EventType,
		"aggregate_type": env.AggregateType,
		"aggregate_id":   env.AggregateID,
		"occurred_at":    env.OccurredAt.Format(time.RFC3339Nano),
	})

	first, err := s.claims.Claim(ctx, env.EventID)
	if err != nil {
		s.logg.Error(ctx, "idempotency claim failed", err)
		return false
	}
	if !first {
		s.logg.Info(ctx, "event already processed")
		return true
	}

	err = s.handler.Handle(ctx, env)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event handled")
		return true
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Info(ctx, "event type not tracked")
		return true
	default:
		s.logg.Error(ctx, "analytics handler failed", err)
		if relErr := s.claims.Release(ctx, env.EventID); relErr != nil {
			s.logg.Error(ctx, "idempotency release failed", relErr)
		}
		return false
	}
}

// decodeMessage merges the routing attributes with the stored envelope.
// Envelope values win over attributes for the event id and timestamp.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return types.Envelope{}, err
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr(outbox.AttrEventType))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("%s: %w", outbox.AttrEventType, err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr(outbox.AttrAggregateType))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("%s: %w", outbox.AttrAggregateType, err)
	}
	aggregateID := attr(outbox.AttrAggregateID)
	if aggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}
	eventID := cmp.Or(strings.TrimSpace(stored.EventID), attr(outbox.AttrEventID))
	if eventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, perr := time.Parse(time.RFC3339Nano, attr(outbox.AttrCreatedAt)); perr == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       stored.Version,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}, nil
}

