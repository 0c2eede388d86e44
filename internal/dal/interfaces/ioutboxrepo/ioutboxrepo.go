package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
)

// IOutboxRepository defines the interface for outbox operations.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error

	// GetPendingMessages returns messages due at now that still have attempts left.
	GetPendingMessages(ctx context.Context, now time.Time, limit int) ([]outbox.OutboxMessage, error)

	// Delete removes a message after it was published.
	Delete(ctx context.Context, id int64) error

	// UpdateRetry records a failed attempt and when to try again.
	UpdateRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error
}
