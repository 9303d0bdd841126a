package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Envelope is one order event as received on the analytics subscription,
// with routing attributes merged into the stored payload envelope.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Version       int
	OccurredAt    time.Time
	Payload       json.RawMessage
}
