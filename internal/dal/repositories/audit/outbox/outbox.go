package outboxaudit

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
)

// AuditRepository records order status changes as outbox messages, so they
// are published only if the change itself commits.
type AuditRepository struct {
	outbox ioutboxrepo.IOutboxRepository
}

// NewAuditRepository creates an audit repository writing through outboxRepo.
func NewAuditRepository(outboxRepo ioutboxrepo.IOutboxRepository) *AuditRepository {
	return &AuditRepository{
		outbox: outboxRepo,
	}
}

// LogStatusChange stores change for asynchronous publishing keyed by order number.
func (r *AuditRepository) LogStatusChange(ctx context.Context, change auditlog.OrderStatusChange) error {
	now := change.OccurredAt
	if now.IsZero() {
		now = time.Now()
	}

	msg, err := outbox.NewJSONMessage(outbox.TopicOrderStatusChanged, change.OrderNumber, change, now)
	if err != nil {
		return err
	}

	return r.outbox.Insert(ctx, msg)
}
