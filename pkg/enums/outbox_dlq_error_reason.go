package enums

// OutboxDLQErrorReason records why a domain event was parked in the
// dead-letter table instead of being published.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means the publisher exhausted its retry budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the event can never publish as stored.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}
