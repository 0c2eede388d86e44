package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id        int64          `db:"id"`
	OrderId   int64          `db:"order_id"`
	Name      string         `db:"name"`
	Image     string         `db:"image"`
	DishId    pgtype.Int8    `db:"dish_id"`
	SetmealId pgtype.Int8    `db:"setmeal_id"`
	Flavor    string         `db:"flavor"`
	Quantity  int32          `db:"quantity"`
	UnitPrice pgtype.Numeric `db:"unit_price"`
	CreatedAt time.Time      `db:"created_at"`
}

var orderItemColumns = []string{
	"id",
	"order_id",
	"name",
	"image",
	"dish_id",
	"setmeal_id",
	"flavor",
	"quantity",
	"unit_price",
	"created_at",
}

func (oi *OrderItemDal) scanTargets() []any {
	return []any{
		&oi.Id,
		&oi.OrderId,
		&oi.Name,
		&oi.Image,
		&oi.DishId,
		&oi.SetmealId,
		&oi.Flavor,
		&oi.Quantity,
		&oi.UnitPrice,
		&oi.CreatedAt,
	}
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:        oi.Id,
		OrderID:   oi.OrderId,
		Name:      oi.Name,
		Image:     oi.Image,
		DishID:    oi.DishId.Int64,
		SetmealID: oi.SetmealId.Int64,
		Flavor:    oi.Flavor,
		Quantity:  int(oi.Quantity),
		UnitPrice: postgres.DecimalFromNumeric(oi.UnitPrice),
		CreatedAt: oi.CreatedAt,
	}
}

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.GenericConn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts multiple order items and returns them with IDs.
// Uses PostgreSQL composite type v1_order_item to send the batch in one round trip.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	compositeRecords := make([][]any, len(orderItems))
	for i, oi := range orderItems {
		compositeRecords[i] = []any{
			nil, // id will be generated
			oi.OrderID,
			oi.Name,
			oi.Image,
			optionalID(oi.DishID),
			optionalID(oi.SetmealID),
			oi.Flavor,
			int32(oi.Quantity),
			postgres.NumericFromDecimal(oi.UnitPrice),
			pgtype.Timestamptz{Time: oi.CreatedAt, Valid: true},
		}
	}

	sql := `
		INSERT INTO order_items (order_id, name, image, dish_id, setmeal_id, flavor, quantity, unit_price, created_at)
		SELECT t.order_id, t.name, t.image, t.dish_id, t.setmeal_id, t.flavor, t.quantity, t.unit_price, t.created_at
		FROM unnest($1::v1_order_item[]) AS t
		RETURNING id, order_id, name, image, dish_id, setmeal_id, flavor, quantity, unit_price, created_at
	`

	rows, err := r.conn.Query(ctx, sql, compositeRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves order items based on filter criteria.
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	query := r.sb.
		Select(orderItemColumns...).
		From("order_items").
		OrderBy("order_id", "id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIds})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func optionalID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}
