// Package relay moves committed outbox rows onto Pub/Sub topics.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultMaxBackoff     = 10 * time.Second
	defaultPublishTimeout = 15 * time.Second
	maxJitter             = 250 * time.Millisecond
)

type Store interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Park(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
	DeadLetter(tx *gorm.DB, entry models.OutboxDLQ) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Publisher sends msg to topic and blocks until the server acknowledges it.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
	Ping(ctx context.Context) error
}

type Database interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.MaxBackoff < o.PollInterval {
		o.MaxBackoff = max(defaultMaxBackoff, o.PollInterval)
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = defaultPublishTimeout
	}
	return o
}

// Relay claims outbox rows in a transaction, publishes each one, and records
// the outcome in the same transaction. Rows that can never publish, or that
// exhaust MaxAttempts, are copied to the DLQ and parked.
type Relay struct {
	db       Database
	store    Store
	resolver Resolver
	pub      Publisher
	logg     *logger.Logger
	opts     Options
	now      func() time.Time
}

func New(db Database, store Store, resolver Resolver, pub Publisher, logg *logger.Logger, opts Options) (*Relay, error) {
	switch {
	case db == nil:
		return nil, errors.New("relay: database is required")
	case store == nil:
		return nil, errors.New("relay: outbox store is required")
	case resolver == nil:
		return nil, errors.New("relay: event registry is required")
	case pub == nil:
		return nil, errors.New("relay: publisher is required")
	case logg == nil:
		return nil, errors.New("relay: logger is required")
	}
	return &Relay{
		db:       db,
		store:    store,
		resolver: resolver,
		pub:      pub,
		logg:     logg,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; an empty batch waits PollInterval; a failed batch backs off
// exponentially up to MaxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("relay: database ping: %w", err)
	}
	if err := r.pub.Ping(ctx); err != nil {
		return fmt.Errorf("relay: pubsub ping: %w", err)
	}

	wait := r.opts.PollInterval
	for {
		n, err := r.Drain(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, r.opts.MaxBackoff)
		case n > 0:
			wait = r.opts.PollInterval
			continue
		default:
			wait = r.opts.PollInterval
		}
		if err := sleep(ctx, wait+rand.N(maxJitter)); err != nil {
			return err
		}
	}
}

// Drain handles one batch and returns how many rows it claimed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.ClaimBatch(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := r.handle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// handle only returns bookkeeping errors; publish failures are recorded on the row.
func (r *Relay) handle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithField(ctx, "event_id", resolved.Envelope.EventID)

	err = r.publish(ctx, row, resolved)
	switch {
	case err == nil:
		if err := r.store.MarkPublished(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(ctx, "outbox event published")
		return nil
	case registry.IsNonRetryable(err):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case row.AttemptCount+1 >= r.opts.MaxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	default:
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
		if err := r.store.RecordFailure(tx, row.ID, err); err != nil {
			return fmt.Errorf("record failure %s: %w", row.ID, err)
		}
		return nil
	}
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topics := resolved.Descriptor.Topics()
	if len(topics) == 0 {
		return registry.NewNonRetryableError(fmt.Errorf("no topic routed for %s", row.EventType))
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
	defer cancel()

	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			outbox.AttrEventID:       resolved.Envelope.EventID,
			outbox.AttrEventType:     string(row.EventType),
			outbox.AttrAggregateType: string(row.AggregateType),
			outbox.AttrAggregateID:   row.AggregateID.String(),
			outbox.AttrCreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	for _, topic := range topics {
		if _, err := r.pub.Publish(ctx, topic, msg); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event moved to dlq")

	msg := cause.Error()
	if err := r.store.DeadLetter(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}); err != nil {
		return fmt.Errorf("dead letter %s: %w", row.ID, err)
	}
	if err := r.store.Park(tx, row.ID, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
