package icartrepo

import (
	"context"

	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
)

// ICartRepository is an interface for shopping cart postgres repository.
type ICartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]cartitem.CartItem, error)
	ClearByUser(ctx context.Context, userID int64) error
	InsertBatch(ctx context.Context, items []cartitem.CartItem) error
}
