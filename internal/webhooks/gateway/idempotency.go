package gatewaywebhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/washfold-backend/pkg/redis"
)

// EventIDHeader carries the gateway's delivery id when it sends one.
const EventIDHeader = "X-Gateway-Event-Id"

// IdempotencyGuard remembers processed webhook deliveries so gateway retries
// are acknowledged without being replayed.
type IdempotencyGuard struct {
	tracker *idempotency.Tracker
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	tracker, err := idempotency.New(store, scope, ttl)
	if err != nil {
		return nil, err
	}
	return &IdempotencyGuard{tracker: tracker}, nil
}

// CheckAndMark reports true when eventID was already recorded.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	first, err := g.tracker.Claim(ctx, eventID)
	return !first && err == nil, err
}

func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.tracker.Release(ctx, eventID)
}

// EventID prefers the delivery header and falls back to a digest of the body.
func EventID(header string, payload []byte) string {
	if trimmed := strings.TrimSpace(header); trimmed != "" {
		return trimmed
	}
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}
