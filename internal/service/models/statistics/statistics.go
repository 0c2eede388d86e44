package statistics

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusCounts is the number of orders waiting on staff at each stage.
type StatusCounts struct {
	ToBeConfirmed      int64 `json:"toBeConfirmed"`
	Confirmed          int64 `json:"confirmed"`
	DeliveryInProgress int64 `json:"deliveryInProgress"`
}

// DayAmount is a per-day money aggregate.
type DayAmount struct {
	Day    time.Time
	Amount decimal.Decimal
}

// DayCount is a per-day counter.
type DayCount struct {
	Day   time.Time
	Count int64
}

// TurnoverReport lists completed order turnover per day.
type TurnoverReport struct {
	Dates    []string          `json:"dateList"`
	Turnover []decimal.Decimal `json:"turnoverList"`
}

// OrderReport lists placed and completed order counts per day.
type OrderReport struct {
	Dates               []string        `json:"dateList"`
	OrderCounts         []int64         `json:"orderCountList"`
	ValidOrderCounts    []int64         `json:"validOrderCountList"`
	TotalOrderCount     int64           `json:"totalOrderCount"`
	ValidOrderCount     int64           `json:"validOrderCount"`
	OrderCompletionRate decimal.Decimal `json:"orderCompletionRate"`
}

// GoodsSales is the sold quantity of a product name.
type GoodsSales struct {
	Name     string `json:"name"`
	Quantity int64  `json:"number"`
}

// SalesTopReport lists best sellers by quantity.
type SalesTopReport struct {
	Names      []string `json:"nameList"`
	Quantities []int64  `json:"numberList"`
}
