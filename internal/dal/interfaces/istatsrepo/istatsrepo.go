package istatsrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/statistics"
)

// IStatisticsRepository is a read-only interface over order history.
type IStatisticsRepository interface {
	CountByStatus(ctx context.Context, statuses []order.Status) (map[order.Status]int64, error)
	// SumAmountByDay sums amounts of orders in status per order day in [begin, end).
	SumAmountByDay(
		ctx context.Context,
		status order.Status,
		begin, end time.Time,
	) ([]statistics.DayAmount, error)
	// CountByDay counts orders per order day in [begin, end); nil status counts all.
	CountByDay(
		ctx context.Context,
		status *order.Status,
		begin, end time.Time,
	) ([]statistics.DayCount, error)
	SalesTop(ctx context.Context, begin, end time.Time, limit int) ([]statistics.GoodsSales, error)
}
