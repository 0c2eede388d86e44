package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
)

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids      []int64   `json:"ids,omitempty"`
	UserIds  []int64   `json:"userIds,omitempty"`
	Statuses []Status  `json:"statuses,omitempty"`
	Number   string    `json:"number,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Begin    time.Time `json:"begin,omitempty"`
	End      time.Time `json:"end,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// Page is a page of orders with the total number of matches.
type Page struct {
	Total  int64   `json:"total"`
	Orders []Order `json:"records"`
}

// Summary is an order as listed in the staff search, with its dishes
// flattened into one line.
type Summary struct {
	Order
	Dishes string `json:"orderDishes"`
}

// SummaryPage is a page of search results.
type SummaryPage struct {
	Total  int64     `json:"total"`
	Orders []Summary `json:"records"`
}

// DishSummary renders items as "name*qty;" entries.
func DishSummary(items []orderitem.OrderItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Name)
		b.WriteByte('*')
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteByte(';')
	}

	return b.String()
}
