package order

import (
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/corray333/backend-labs/takeout/internal/service/models/currency"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Order represents a customer order and its canonical view.
type Order struct {
	ID              int64                 `json:"id"`
	Number          string                `json:"number"`
	UserID          int64                 `json:"userId"`
	AddressBookID   int64                 `json:"addressBookId"`
	Status          Status                `json:"status"`
	PayStatus       PayStatus             `json:"payStatus"`
	Amount          decimal.Decimal       `json:"amount"`
	Currency        currency.Currency     `json:"currency"`
	Remark          string                `json:"remark,omitempty"`
	Delivery        address.Snapshot      `json:"delivery"`
	OrderTime       time.Time             `json:"orderTime"`
	CheckoutTime    *time.Time            `json:"checkoutTime,omitempty"`
	CancelTime      *time.Time            `json:"cancelTime,omitempty"`
	DeliveryTime    *time.Time            `json:"deliveryTime,omitempty"`
	CancelReason    string                `json:"cancelReason,omitempty"`
	RejectionReason string                `json:"rejectionReason,omitempty"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"createdAt"`
	CreatedBy       Actor                 `json:"createdBy"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	UpdatedBy       Actor                 `json:"updatedBy"`
	OrderItems      []orderitem.OrderItem `json:"orderItems"`
}

// Guard is the persisted state a conditional update expects to find.
type Guard struct {
	Status  Status
	Version int64
}

// Guard returns the expected state for updating o.
func (o Order) Guard() Guard {
	return Guard{Status: o.Status, Version: o.Version}
}

// Update holds the fields written by a transition. Nil pointers are left as is.
type Update struct {
	Status          Status
	PayStatus       *PayStatus
	CheckoutTime    *time.Time
	CancelTime      *time.Time
	DeliveryTime    *time.Time
	CancelReason    *string
	RejectionReason *string
	UpdatedAt       time.Time
	UpdatedBy       Actor
}

// Apply returns a copy of o with the update and a bumped version.
func (o Order) Apply(u Update) Order {
	o.Status = u.Status
	if u.PayStatus != nil {
		o.PayStatus = *u.PayStatus
	}
	if u.CheckoutTime != nil {
		o.CheckoutTime = u.CheckoutTime
	}
	if u.CancelTime != nil {
		o.CancelTime = u.CancelTime
	}
	if u.DeliveryTime != nil {
		o.DeliveryTime = u.DeliveryTime
	}
	if u.CancelReason != nil {
		o.CancelReason = *u.CancelReason
	}
	if u.RejectionReason != nil {
		o.RejectionReason = *u.RejectionReason
	}
	o.UpdatedAt = u.UpdatedAt
	o.UpdatedBy = u.UpdatedBy
	o.Version++

	return o
}

// Total sums the subtotals of the given line items.
func Total(items []orderitem.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}

	return total
}
