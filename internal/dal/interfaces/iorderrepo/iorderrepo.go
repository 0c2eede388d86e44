package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	GetByID(ctx context.Context, id int64) (order.Order, error)
	GetByNumber(ctx context.Context, number string) (order.Order, error)
	// LockByID reads the order and holds its row lock until the transaction ends.
	LockByID(ctx context.Context, id int64) (order.Order, error)
	// LockByNumber is LockByID keyed by order number.
	LockByNumber(ctx context.Context, number string) (order.Order, error)
	// UpdateStatus writes upd only if the order still matches expected,
	// otherwise it returns order.ErrStorageConflict.
	UpdateStatus(ctx context.Context, id int64, expected order.Guard, upd order.Update) error
	// ListByStatusOlderThan returns orders in status placed before cutoff,
	// ordered by id and starting after afterID.
	ListByStatusOlderThan(
		ctx context.Context,
		status order.Status,
		cutoff time.Time,
		afterID int64,
		limit int,
	) ([]order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	Count(ctx context.Context, filter *order.QueryOrdersModel) (int64, error)
}
