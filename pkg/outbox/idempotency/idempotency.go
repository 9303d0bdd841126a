// Package idempotency records which event or delivery ids a consumer has
// already handled. Records live in Redis under
// wf:idempotency:<scope>:<id> and expire after the tracker's TTL.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/redis"
)

var errEmptyID = errors.New("idempotency: id is required")

type Tracker struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
}

// ConsumerScope is the scope used for outbox events handled by consumer.
func ConsumerScope(consumer string) string {
	return "evt:processed:" + consumer
}

func New(store redis.IdempotencyStore, scope string, ttl time.Duration) (*Tracker, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency: store is required")
	case strings.TrimSpace(scope) == "":
		return nil, errors.New("idempotency: scope is required")
	case ttl < 0:
		return nil, errors.New("idempotency: ttl must be non-negative")
	}
	return &Tracker{store: store, scope: scope, ttl: ttl}, nil
}

// Claim marks id as handled and reports whether this call was the first.
func (t *Tracker) Claim(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errEmptyID
	}
	first, err := t.store.SetNX(ctx, t.store.IdempotencyKey(t.scope, id), "1", t.ttl)
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %s: %w", id, err)
	}
	return first, nil
}

// Release forgets id so a redelivery is processed again.
func (t *Tracker) Release(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	return t.store.Del(ctx, t.store.IdempotencyKey(t.scope, id))
}
