package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iaddressrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/ipaymentgateway"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/dal/uow"
	"github.com/corray333/backend-labs/takeout/internal/metrics"
	"github.com/corray333/backend-labs/takeout/internal/service/models/currency"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
)

// OrderService submits orders and drives them through their lifecycle.
type OrderService struct {
	newUOW   func() unitOfWork
	gateway  ipaymentgateway.IPaymentGateway
	metrics  *metrics.Metrics
	now      func() time.Time
	currency currency.Currency
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	CartRepository() icartrepo.ICartRepository
	AddressRepository() iaddressrepo.IAddressRepository
	AuditRepository() iauditrepo.IAuditRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:      time.Now,
		currency: currency.Default,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("order service requires a postgres client or unit of work factory")
	}
	if s.gateway == nil {
		panic("order service requires a payment gateway")
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory replaces the Postgres backed unit of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithPaymentGateway sets the gateway used for prepay and refunds.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentGateway(gateway ipaymentgateway.IPaymentGateway) option {
	return func(s *OrderService) {
		s.gateway = gateway
	}
}

// WithMetrics sets the collectors updated by the service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(s *OrderService) {
		s.metrics = m
	}
}

// WithClock overrides time.Now.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithCurrency sets the currency new orders are priced in.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCurrency(c currency.Currency) option {
	return func(s *OrderService) {
		s.currency = c
	}
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *OrderService) inTx(ctx context.Context, fn func(work unitOfWork) error) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to roll back transaction", "error", err)
		}
	}()

	if err := fn(work); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// attachItems loads the line items of orders in one query.
func attachItems(ctx context.Context, repo iorderitemrepo.IOrderItemRepository, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	filter := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		filter.OrderIds = append(filter.OrderIds, o.ID)
	}
	items, err := repo.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[int64][]orderitem.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].OrderItems = byOrder[orders[i].ID]
		if orders[i].OrderItems == nil {
			orders[i].OrderItems = []orderitem.OrderItem{}
		}
	}

	return nil
}
