package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
)

// IAuditRepository records order status changes for publishing.
type IAuditRepository interface {
	LogStatusChange(ctx context.Context, change auditlog.OrderStatusChange) error
}
