package auditlog

import (
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
)

// OrderStatusChange is the audit record emitted for every committed
// submission and transition of an order.
type OrderStatusChange struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Event       order.Event     `json:"event"`
	FromStatus  order.Status    `json:"from_status,omitempty"`
	ToStatus    order.Status    `json:"to_status"`
	PayStatus   order.PayStatus `json:"pay_status"`
	Reason      string          `json:"reason,omitempty"`
	Actor       order.Actor     `json:"actor"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// EventSubmitted marks the creation of an order.
const EventSubmitted order.Event = "submitted"

// FromOrder builds the record describing how o reached its current state.
func FromOrder(o order.Order, ev order.Event, from order.Status) OrderStatusChange {
	return OrderStatusChange{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Event:       ev,
		FromStatus:  from,
		ToStatus:    o.Status,
		PayStatus:   o.PayStatus,
		Reason:      o.CancelReason,
		Actor:       o.UpdatedBy,
		OccurredAt:  o.UpdatedAt,
	}
}
