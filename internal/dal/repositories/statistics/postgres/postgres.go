package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/statistics"
	"github.com/jackc/pgx/v5/pgtype"
)

// dayExpr buckets order_time into calendar days of the database time zone.
const dayExpr = "date_trunc('day', order_time)"

// PostgresStatisticsRepository runs read-only aggregations over orders.
type PostgresStatisticsRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresStatisticsRepository creates a new Postgres statistics repository.
func NewPostgresStatisticsRepository(conn postgres.GenericConn) *PostgresStatisticsRepository {
	return &PostgresStatisticsRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CountByStatus counts orders in each of the given statuses.
func (r *PostgresStatisticsRepository) CountByStatus(
	ctx context.Context,
	statuses []order.Status,
) (map[order.Status]int64, error) {
	codes := make([]int16, len(statuses))
	for i, s := range statuses {
		codes[i] = int16(s)
	}

	sql, args, err := r.sb.Select("status", "count(*)").
		From("orders").
		Where(sq.Eq{"status": codes}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	result := make(map[order.Status]int64, len(statuses))
	for rows.Next() {
		var (
			status int16
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		result[order.Status(status)] = count
	}

	return result, rows.Err()
}

// SumAmountByDay sums order amounts in status per day of order_time in [begin, end).
func (r *PostgresStatisticsRepository) SumAmountByDay(
	ctx context.Context,
	status order.Status,
	begin, end time.Time,
) ([]statistics.DayAmount, error) {
	sql, args, err := r.sb.Select(dayExpr+" AS day", "sum(amount)").
		From("orders").
		Where(sq.Eq{"status": int16(status)}).
		Where(sq.GtOrEq{"order_time": begin}).
		Where(sq.Lt{"order_time": end}).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum amounts: %w", err)
	}
	defer rows.Close()

	var result []statistics.DayAmount
	for rows.Next() {
		var (
			day time.Time
			sum pgtype.Numeric
		)
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan day amount: %w", err)
		}
		result = append(result, statistics.DayAmount{Day: day, Amount: postgres.DecimalFromNumeric(sum)})
	}

	return result, rows.Err()
}

// CountByDay counts orders per day of order_time in [begin, end), optionally by status.
func (r *PostgresStatisticsRepository) CountByDay(
	ctx context.Context,
	status *order.Status,
	begin, end time.Time,
) ([]statistics.DayCount, error) {
	query := r.sb.Select(dayExpr+" AS day", "count(*)").
		From("orders").
		Where(sq.GtOrEq{"order_time": begin}).
		Where(sq.Lt{"order_time": end})
	if status != nil {
		query = query.Where(sq.Eq{"status": int16(*status)})
	}

	sql, args, err := query.GroupBy("day").OrderBy("day").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	var result []statistics.DayCount
	for rows.Next() {
		var dc statistics.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		result = append(result, dc)
	}

	return result, rows.Err()
}

// SalesTop returns the best selling line item names of completed orders in [begin, end).
func (r *PostgresStatisticsRepository) SalesTop(
	ctx context.Context,
	begin, end time.Time,
	limit int,
) ([]statistics.GoodsSales, error) {
	sql, args, err := r.sb.Select("oi.name", "sum(oi.quantity) AS sold").
		From("order_items oi").
		Join("orders o ON o.id = oi.order_id").
		Where(sq.Eq{"o.status": int16(order.StatusCompleted)}).
		Where(sq.GtOrEq{"o.order_time": begin}).
		Where(sq.Lt{"o.order_time": end}).
		GroupBy("oi.name").
		OrderBy("sold DESC", "oi.name").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sales: %w", err)
	}
	defer rows.Close()

	var result []statistics.GoodsSales
	for rows.Next() {
		var gs statistics.GoodsSales
		if err := rows.Scan(&gs.Name, &gs.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan goods sales: %w", err)
		}
		result = append(result, gs)
	}

	return result, rows.Err()
}
