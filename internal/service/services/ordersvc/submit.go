package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxRemarkLength = 100

// SubmitRequest describes a cart submission.
type SubmitRequest struct {
	AddressBookID int64  `json:"addressBookId"`
	Remark        string `json:"remark"`
}

// Submit turns the user's cart into a new order awaiting payment and clears
// the cart. Nothing is written unless the address exists and the cart has
// at least one entry.
func (s *OrderService) Submit(ctx context.Context, userID int64, req SubmitRequest) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if len(req.Remark) > maxRemarkLength {
		return order.Order{}, fmt.Errorf("%w: remark longer than %d bytes", order.ErrValidation, maxRemarkLength)
	}

	var created order.Order
	err := s.inTx(ctx, func(work unitOfWork) error {
		addr, err := work.AddressRepository().GetByID(ctx, userID, req.AddressBookID)
		if errors.Is(err, address.ErrNotFound) {
			return fmt.Errorf("address %d: %w", req.AddressBookID, order.ErrAddressNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load address: %w", err)
		}

		cart, err := work.CartRepository().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		entries := make([]cartitem.CartItem, 0, len(cart))
		for _, entry := range cart {
			if entry.Quantity > 0 {
				entries = append(entries, entry)
			}
		}
		if len(entries) == 0 {
			return order.ErrCartEmpty
		}

		now := s.now()
		actor := order.UserActor(userID)
		items := make([]orderitem.OrderItem, 0, len(entries))
		for _, entry := range entries {
			items = append(items, entry.ToOrderItem(0, now))
		}

		o := order.Order{
			Number:        order.NewNumber(now),
			UserID:        userID,
			AddressBookID: addr.ID,
			Status:        order.StatusPendingPayment,
			PayStatus:     order.PayStatusUnpaid,
			Amount:        order.Total(items),
			Currency:      s.currency,
			Remark:        req.Remark,
			Delivery:      addr.Snapshot(),
			OrderTime:     now,
			CreatedAt:     now,
			CreatedBy:     actor,
			UpdatedAt:     now,
			UpdatedBy:     actor,
		}

		o, err = work.OrderRepository().Insert(ctx, o)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = o.ID
		}
		o.OrderItems, err = work.OrderItemRepository().BulkInsert(ctx, items)
		if err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}

		if err := work.CartRepository().ClearByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		if err := work.AuditRepository().LogStatusChange(ctx, auditlog.FromOrder(o, auditlog.EventSubmitted, 0)); err != nil {
			return fmt.Errorf("failed to log order submission: %w", err)
		}

		created = o

		return nil
	})
	if err != nil {
		span.RecordError(err)
		slog.InfoContext(ctx, "Order submission rejected", "user_id", userID, "error", err)

		return order.Order{}, err
	}

	slog.InfoContext(ctx, "Order submitted",
		"order_id", created.ID,
		"order_number", created.Number,
		"amount", created.Amount.StringFixed(2),
		"items", len(created.OrderItems))

	return created, nil
}
