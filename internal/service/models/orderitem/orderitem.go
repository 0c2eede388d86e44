package orderitem

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem represents a line item of an order.
// It is a frozen copy of a cart entry: later menu changes never affect it.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	DishID    int64           `json:"dishId,omitempty"`
	SetmealID int64           `json:"setmealId,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Subtotal returns unit price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
