package ordersvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
	"go.opentelemetry.io/otel"
)

// ListCart returns the user's cart.
func (s *OrderService) ListCart(ctx context.Context, userID int64) ([]cartitem.CartItem, error) {
	items, err := s.newUOW().CartRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []cartitem.CartItem{}
	}

	return items, nil
}

// ClearCart empties the user's cart.
func (s *OrderService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.newUOW().CartRepository().ClearByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// Repeat copies the line items of one of the user's orders back into the cart.
func (s *OrderService) Repeat(ctx context.Context, userID, orderID int64) ([]cartitem.CartItem, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Repeat")
	defer span.End()

	var added []cartitem.CartItem
	err := s.inTx(ctx, func(work unitOfWork) error {
		o, err := work.OrderRepository().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return fmt.Errorf("order %d of another user: %w", orderID, order.ErrOrderNotFound)
		}

		items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []int64{o.ID}})
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}

		now := s.now()
		added = make([]cartitem.CartItem, 0, len(items))
		for _, item := range items {
			added = append(added, cartitem.FromOrderItem(userID, item, now))
		}

		if err := work.CartRepository().InsertBatch(ctx, added); err != nil {
			return fmt.Errorf("failed to refill cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Order repeated into cart", "order_id", orderID, "user_id", userID, "items", len(added))

	return added, nil
}
