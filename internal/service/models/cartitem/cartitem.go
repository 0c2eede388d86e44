package cartitem

import (
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// CartItem is an entry of a user's shopping cart.
type CartItem struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	DishID    int64           `json:"dishId,omitempty"`
	SetmealID int64           `json:"setmealId,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToOrderItem copies the cart entry into a line item of the given order.
func (c CartItem) ToOrderItem(orderID int64, now time.Time) orderitem.OrderItem {
	return orderitem.OrderItem{
		OrderID:   orderID,
		Name:      c.Name,
		Image:     c.Image,
		DishID:    c.DishID,
		SetmealID: c.SetmealID,
		Flavor:    c.Flavor,
		Quantity:  c.Quantity,
		UnitPrice: c.UnitPrice,
		CreatedAt: now,
	}
}

// FromOrderItem builds a new cart entry for userID out of a past line item.
func FromOrderItem(userID int64, item orderitem.OrderItem, now time.Time) CartItem {
	return CartItem{
		UserID:    userID,
		Name:      item.Name,
		Image:     item.Image,
		DishID:    item.DishID,
		SetmealID: item.SetmealID,
		Flavor:    item.Flavor,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		CreatedAt: now,
	}
}
