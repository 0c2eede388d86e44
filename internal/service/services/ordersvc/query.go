package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"go.opentelemetry.io/otel"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// HistoryRequest pages through one user's orders.
type HistoryRequest struct {
	Status   *order.Status
	Page     int
	PageSize int
}

// SearchRequest is the staff order search.
type SearchRequest struct {
	Status *order.Status
	Number string
	Phone  string
	// Begin is inclusive, End is exclusive.
	Begin    time.Time
	End      time.Time
	Page     int
	PageSize int
}

// Details returns one of the user's orders with its line items.
func (s *OrderService) Details(ctx context.Context, userID, id int64) (order.Order, error) {
	o, err := s.AdminDetails(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if o.UserID != userID {
		return order.Order{}, fmt.Errorf("order %d of another user: %w", id, order.ErrOrderNotFound)
	}

	return o, nil
}

// AdminDetails returns any order with its line items.
func (s *OrderService) AdminDetails(ctx context.Context, id int64) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Details")
	defer span.End()

	work := s.newUOW()
	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	orders := []order.Order{o}
	if err := attachItems(ctx, work.OrderItemRepository(), orders); err != nil {
		return order.Order{}, err
	}

	return orders[0], nil
}

// History returns the user's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID int64, req HistoryRequest) (order.Page, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.History")
	defer span.End()

	limit, offset, err := paging(req.Page, req.PageSize)
	if err != nil {
		return order.Page{}, err
	}

	filter := &order.QueryOrdersModel{
		UserIds: []int64{userID},
		Limit:   limit,
		Offset:  offset,
	}
	if req.Status != nil {
		filter.Statuses = []order.Status{*req.Status}
	}

	work := s.newUOW()
	total, err := work.OrderRepository().Count(ctx, filter)
	if err != nil {
		return order.Page{}, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := work.OrderRepository().Query(ctx, filter)
	if err != nil {
		return order.Page{}, fmt.Errorf("failed to query orders: %w", err)
	}
	if err := attachItems(ctx, work.OrderItemRepository(), orders); err != nil {
		return order.Page{}, err
	}
	if orders == nil {
		orders = []order.Order{}
	}

	return order.Page{Total: total, Orders: orders}, nil
}

// Search pages through all orders matching the staff filter.
func (s *OrderService) Search(ctx context.Context, req SearchRequest) (order.SummaryPage, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Search")
	defer span.End()

	limit, offset, err := paging(req.Page, req.PageSize)
	if err != nil {
		return order.SummaryPage{}, err
	}
	if !req.Begin.IsZero() && !req.End.IsZero() && req.Begin.After(req.End) {
		return order.SummaryPage{}, fmt.Errorf("%w: begin is after end", order.ErrValidation)
	}

	filter := &order.QueryOrdersModel{
		Number: req.Number,
		Phone:  req.Phone,
		Begin:  req.Begin,
		End:    req.End,
		Limit:  limit,
		Offset: offset,
	}
	if req.Status != nil {
		filter.Statuses = []order.Status{*req.Status}
	}

	work := s.newUOW()
	total, err := work.OrderRepository().Count(ctx, filter)
	if err != nil {
		return order.SummaryPage{}, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := work.OrderRepository().Query(ctx, filter)
	if err != nil {
		return order.SummaryPage{}, fmt.Errorf("failed to query orders: %w", err)
	}
	if err := attachItems(ctx, work.OrderItemRepository(), orders); err != nil {
		return order.SummaryPage{}, err
	}

	page := order.SummaryPage{Total: total, Orders: make([]order.Summary, 0, len(orders))}
	for _, o := range orders {
		page.Orders = append(page.Orders, order.Summary{Order: o, Dishes: order.DishSummary(o.OrderItems)})
	}

	return page, nil
}

// ListSweepable returns up to limit orders in status placed before cutoff
// with ids greater than afterID.
func (s *OrderService) ListSweepable(
	ctx context.Context,
	status order.Status,
	cutoff time.Time,
	afterID int64,
	limit int,
) ([]order.Order, error) {
	return s.newUOW().OrderRepository().ListByStatusOlderThan(ctx, status, cutoff, afterID, limit)
}

func paging(page, pageSize int) (limit, offset int, err error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be positive", order.ErrValidation)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, fmt.Errorf("%w: page size must be within 1..%d", order.ErrValidation, maxPageSize)
	}

	return pageSize, (page - 1) * pageSize, nil
}
