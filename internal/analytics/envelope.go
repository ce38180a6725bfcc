package analytics

import (
	"encoding/json"
	"time"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

// Envelope is the decoded shape of one Pub/Sub message, normalized from
// the outbox payload envelope plus the message attributes.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Payload       json.RawMessage
}
