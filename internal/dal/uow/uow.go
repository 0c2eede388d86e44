package uow

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iaddressrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	addressrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/address/postgres"
	outboxaudit "github.com/corray333/backend-labs/takeout/internal/dal/repositories/audit/outbox"
	cartrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/cartitem/postgres"
	orderrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/outbox/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type unitOfWork struct {
	pool          *pgxpool.Pool
	tx            pgx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	cartRepo      icartrepo.ICartRepository
	addressRepo   iaddressrepo.IAddressRepository
	auditRepo     iauditrepo.IAuditRepository
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) CartRepository() icartrepo.ICartRepository {
	return u.cartRepo
}

func (u *unitOfWork) AddressRepository() iaddressrepo.IAddressRepository {
	return u.addressRepo
}

func (u *unitOfWork) AuditRepository() iauditrepo.IAuditRepository {
	return u.auditRepo
}

// NewUnitOfWork creates a unit of work whose repositories run on the pool
// until Begin switches them onto a transaction.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.GenericConn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.cartRepo = cartrepo.NewPostgresCartRepository(conn)
	u.addressRepo = addressrepo.NewPostgresAddressRepository(conn)
	u.auditRepo = outboxaudit.NewAuditRepository(outboxrepo.NewOutboxRepository(conn))
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}
