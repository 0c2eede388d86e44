package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/jackc/pgx/v5/pgtype"
)

// CartItemDal represents shopping cart data access layer model.
type CartItemDal struct {
	Id        int64          `db:"id"`
	UserId    int64          `db:"user_id"`
	Name      string         `db:"name"`
	Image     string         `db:"image"`
	DishId    pgtype.Int8    `db:"dish_id"`
	SetmealId pgtype.Int8    `db:"setmeal_id"`
	Flavor    string         `db:"flavor"`
	Quantity  int32          `db:"quantity"`
	UnitPrice pgtype.Numeric `db:"unit_price"`
	CreatedAt time.Time      `db:"created_at"`
}

// ToModel converts CartItemDal to service layer CartItem model.
func (c *CartItemDal) ToModel() cartitem.CartItem {
	return cartitem.CartItem{
		ID:        c.Id,
		UserID:    c.UserId,
		Name:      c.Name,
		Image:     c.Image,
		DishID:    c.DishId.Int64,
		SetmealID: c.SetmealId.Int64,
		Flavor:    c.Flavor,
		Quantity:  int(c.Quantity),
		UnitPrice: postgres.DecimalFromNumeric(c.UnitPrice),
		CreatedAt: c.CreatedAt,
	}
}

// PostgresCartRepository represents a Postgres shopping cart repository.
type PostgresCartRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresCartRepository creates a new Postgres shopping cart repository.
func NewPostgresCartRepository(conn postgres.GenericConn) *PostgresCartRepository {
	return &PostgresCartRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListByUser retrieves the cart entries of a user in insertion order.
func (r *PostgresCartRepository) ListByUser(ctx context.Context, userID int64) ([]cartitem.CartItem, error) {
	sql, args, err := r.sb.
		Select(
			"id",
			"user_id",
			"name",
			"image",
			"dish_id",
			"setmeal_id",
			"flavor",
			"quantity",
			"unit_price",
			"created_at",
		).
		From("shopping_cart").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var result []cartitem.CartItem
	for rows.Next() {
		var dal CartItemDal
		err := rows.Scan(
			&dal.Id,
			&dal.UserId,
			&dal.Name,
			&dal.Image,
			&dal.DishId,
			&dal.SetmealId,
			&dal.Flavor,
			&dal.Quantity,
			&dal.UnitPrice,
			&dal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ClearByUser deletes every cart entry of a user.
func (r *PostgresCartRepository) ClearByUser(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Delete("shopping_cart").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to clear cart of user %d: %w", userID, err)
	}

	return nil
}

// InsertBatch inserts cart entries in a single statement.
func (r *PostgresCartRepository) InsertBatch(ctx context.Context, items []cartitem.CartItem) error {
	if len(items) == 0 {
		return nil
	}

	query := r.sb.Insert("shopping_cart").Columns(
		"user_id",
		"name",
		"image",
		"dish_id",
		"setmeal_id",
		"flavor",
		"quantity",
		"unit_price",
		"created_at",
	)
	for _, item := range items {
		query = query.Values(
			item.UserID,
			item.Name,
			item.Image,
			pgtype.Int8{Int64: item.DishID, Valid: item.DishID != 0},
			pgtype.Int8{Int64: item.SetmealID, Valid: item.SetmealID != 0},
			item.Flavor,
			int32(item.Quantity),
			postgres.NumericFromDecimal(item.UnitPrice),
			item.CreatedAt,
		)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert cart items: %w", err)
	}

	return nil
}
