package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/corray333/backend-labs/takeout/internal/service/models/currency"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id              int64          `db:"id"`
	Number          string         `db:"number"`
	UserId          int64          `db:"user_id"`
	AddressBookId   int64          `db:"address_book_id"`
	Status          int16          `db:"status"`
	PayStatus       int16          `db:"pay_status"`
	Amount          pgtype.Numeric `db:"amount"`
	Currency        string         `db:"currency"`
	Remark          string         `db:"remark"`
	Phone           string         `db:"phone"`
	Address         string         `db:"address"`
	Consignee       string         `db:"consignee"`
	OrderTime       time.Time      `db:"order_time"`
	CheckoutTime    *time.Time     `db:"checkout_time"`
	CancelTime      *time.Time     `db:"cancel_time"`
	DeliveryTime    *time.Time     `db:"delivery_time"`
	CancelReason    string         `db:"cancel_reason"`
	RejectionReason string         `db:"rejection_reason"`
	Version         int64          `db:"version"`
	CreatedAt       time.Time      `db:"created_at"`
	CreatedBy       string         `db:"created_by"`
	UpdatedAt       time.Time      `db:"updated_at"`
	UpdatedBy       string         `db:"updated_by"`
}

var orderColumns = []string{
	"id",
	"number",
	"user_id",
	"address_book_id",
	"status",
	"pay_status",
	"amount",
	"currency",
	"remark",
	"phone",
	"address",
	"consignee",
	"order_time",
	"checkout_time",
	"cancel_time",
	"delivery_time",
	"cancel_reason",
	"rejection_reason",
	"version",
	"created_at",
	"created_by",
	"updated_at",
	"updated_by",
}

func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.Number,
		&o.UserId,
		&o.AddressBookId,
		&o.Status,
		&o.PayStatus,
		&o.Amount,
		&o.Currency,
		&o.Remark,
		&o.Phone,
		&o.Address,
		&o.Consignee,
		&o.OrderTime,
		&o.CheckoutTime,
		&o.CancelTime,
		&o.DeliveryTime,
		&o.CancelReason,
		&o.RejectionReason,
		&o.Version,
		&o.CreatedAt,
		&o.CreatedBy,
		&o.UpdatedAt,
		&o.UpdatedBy,
	}
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return order.Order{}, err
	}
	status := order.Status(o.Status)
	if !status.Valid() {
		return order.Order{}, fmt.Errorf("order %d has unknown status %d", o.Id, o.Status)
	}

	return order.Order{
		ID:            o.Id,
		Number:        o.Number,
		UserID:        o.UserId,
		AddressBookID: o.AddressBookId,
		Status:        status,
		PayStatus:     order.PayStatus(o.PayStatus),
		Amount:        postgres.DecimalFromNumeric(o.Amount),
		Currency:      cur,
		Remark:        o.Remark,
		Delivery: address.Snapshot{
			Consignee: o.Consignee,
			Phone:     o.Phone,
			Address:   o.Address,
		},
		OrderTime:       o.OrderTime,
		CheckoutTime:    o.CheckoutTime,
		CancelTime:      o.CancelTime,
		DeliveryTime:    o.DeliveryTime,
		CancelReason:    o.CancelReason,
		RejectionReason: o.RejectionReason,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		CreatedBy:       order.Actor(o.CreatedBy),
		UpdatedAt:       o.UpdatedAt,
		UpdatedBy:       order.Actor(o.UpdatedBy),
	}, nil
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert inserts a new order and returns it with its generated ID.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	sql, args, err := r.sb.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			o.Number,
			o.UserID,
			o.AddressBookID,
			int16(o.Status),
			int16(o.PayStatus),
			postgres.NumericFromDecimal(o.Amount),
			o.Currency.String(),
			o.Remark,
			o.Delivery.Phone,
			o.Delivery.Address,
			o.Delivery.Consignee,
			o.OrderTime,
			o.CheckoutTime,
			o.CancelTime,
			o.DeliveryTime,
			o.CancelReason,
			o.RejectionReason,
			o.Version,
			o.CreatedAt,
			o.CreatedBy.String(),
			o.UpdatedAt,
			o.UpdatedBy.String(),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&o.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// GetByID retrieves an order by its ID.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (order.Order, error) {
	return r.getOne(ctx, r.selectOrders().Where(sq.Eq{"id": id}))
}

// GetByNumber retrieves an order by its number.
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, number string) (order.Order, error) {
	return r.getOne(ctx, r.selectOrders().Where(sq.Eq{"number": number}))
}

// LockByID retrieves an order by its ID and locks its row until the end of the transaction.
func (r *PostgresOrderRepository) LockByID(ctx context.Context, id int64) (order.Order, error) {
	return r.getOne(ctx, r.selectOrders().Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

// LockByNumber retrieves an order by its number and locks its row until the end of the transaction.
func (r *PostgresOrderRepository) LockByNumber(ctx context.Context, number string) (order.Order, error) {
	return r.getOne(ctx, r.selectOrders().Where(sq.Eq{"number": number}).Suffix("FOR UPDATE"))
}

// UpdateStatus applies a transition if the row still has the expected status and version.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	expected order.Guard,
	upd order.Update,
) error {
	query := r.sb.Update("orders").
		Set("status", int16(upd.Status)).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", upd.UpdatedAt).
		Set("updated_by", upd.UpdatedBy.String())

	if upd.PayStatus != nil {
		query = query.Set("pay_status", int16(*upd.PayStatus))
	}
	if upd.CheckoutTime != nil {
		query = query.Set("checkout_time", *upd.CheckoutTime)
	}
	if upd.CancelTime != nil {
		query = query.Set("cancel_time", *upd.CancelTime)
	}
	if upd.DeliveryTime != nil {
		query = query.Set("delivery_time", *upd.DeliveryTime)
	}
	if upd.CancelReason != nil {
		query = query.Set("cancel_reason", *upd.CancelReason)
	}
	if upd.RejectionReason != nil {
		query = query.Set("rejection_reason", *upd.RejectionReason)
	}

	sql, args, err := query.
		Where(sq.Eq{
			"id":      id,
			"status":  int16(expected.Status),
			"version": expected.Version,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is no longer %s at version %d: %w",
			id, expected.Status, expected.Version, order.ErrStorageConflict)
	}

	return nil
}

// ListByStatusOlderThan retrieves a batch of orders in status placed before cutoff.
func (r *PostgresOrderRepository) ListByStatusOlderThan(
	ctx context.Context,
	status order.Status,
	cutoff time.Time,
	afterID int64,
	limit int,
) ([]order.Order, error) {
	query := r.selectOrders().
		Where(sq.Eq{"status": int16(status)}).
		Where(sq.Lt{"order_time": cutoff}).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	return r.getMany(ctx, query)
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	query := applyFilter(r.selectOrders(), filter).OrderBy("order_time DESC", "id DESC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	return r.getMany(ctx, query)
}

// Count returns the number of orders matching filter, ignoring paging.
func (r *PostgresOrderRepository) Count(ctx context.Context, filter *order.QueryOrdersModel) (int64, error) {
	sql, args, err := applyFilter(r.sb.Select("count(*)").From("orders"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return total, nil
}

func applyFilter(query sq.SelectBuilder, filter *order.QueryOrdersModel) sq.SelectBuilder {
	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.UserIds) > 0 {
		query = query.Where(sq.Eq{"user_id": filter.UserIds})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]int16, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = int16(s)
		}
		query = query.Where(sq.Eq{"status": statuses})
	}

	if filter.Number != "" {
		query = query.Where(sq.Like{"number": "%" + filter.Number + "%"})
	}

	if filter.Phone != "" {
		query = query.Where(sq.Like{"phone": "%" + filter.Phone + "%"})
	}

	if !filter.Begin.IsZero() {
		query = query.Where(sq.GtOrEq{"order_time": filter.Begin})
	}

	if !filter.End.IsZero() {
		query = query.Where(sq.Lt{"order_time": filter.End})
	}

	return query
}

func (r *PostgresOrderRepository) selectOrders() sq.SelectBuilder {
	return r.sb.Select(orderColumns...).From("orders")
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, query sq.SelectBuilder) (order.Order, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrOrderNotFound
		}

		return order.Order{}, fmt.Errorf("failed to scan order: %w", err)
	}

	return dal.ToModel()
}

func (r *PostgresOrderRepository) getMany(ctx context.Context, query sq.SelectBuilder) ([]order.Order, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
