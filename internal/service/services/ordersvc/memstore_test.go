package ordersvc

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iaddressrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/orderitem"
)

var errCommitFailed = errors.New("commit failed")

// memStore is an in-memory database with row locks. Writes made inside a
// transaction become visible on commit.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	orders      map[int64]order.Order
	items       map[int64][]orderitem.OrderItem
	carts       map[int64][]cartitem.CartItem
	addresses   map[int64]address.Address
	audit       []auditlog.OrderStatusChange
	rowLocks    map[int64]chan struct{}
	conflicts   int
	failCommits int
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[int64]order.Order),
		items:     make(map[int64][]orderitem.OrderItem),
		carts:     make(map[int64][]cartitem.CartItem),
		addresses: make(map[int64]address.Address),
		rowLocks:  make(map[int64]chan struct{}),
	}
}

func (m *memStore) factory() unitOfWork {
	return &memUOW{store: m}
}

func (m *memStore) id() int64 {
	m.nextID++

	return m.nextID
}

func (m *memStore) rowLock(id int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.rowLocks[id]
	if !ok {
		l = make(chan struct{}, 1)
		m.rowLocks[id] = l
	}

	return l
}

func (m *memStore) addAddress(a address.Address) address.Address {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = m.id()
	m.addresses[a.ID] = a

	return a
}

func (m *memStore) addCartItem(c cartitem.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	m.carts[c.UserID] = append(m.carts[c.UserID], c)
}

func (m *memStore) putOrder(o order.Order) order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == 0 {
		o.ID = m.id()
	}
	m.orders[o.ID] = o

	return o
}

func (m *memStore) order(id int64) order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.orders[id]
}

func (m *memStore) auditLog() []auditlog.OrderStatusChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.audit)
}

func (m *memStore) cart(userID int64) []cartitem.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.carts[userID])
}

func (m *memStore) setConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conflicts = n
}

func (m *memStore) setFailCommits(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failCommits = n
}

type memUOW struct {
	store  *memStore
	inTx   bool
	staged []func()
	held   []chan struct{}
}

func (u *memUOW) Begin(context.Context) error {
	u.inTx = true

	return nil
}

func (u *memUOW) Commit(context.Context) error {
	if !u.inTx {
		return nil
	}
	defer u.reset()

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if u.store.failCommits > 0 {
		u.store.failCommits--

		return errCommitFailed
	}
	for _, apply := range u.staged {
		apply()
	}

	return nil
}

func (u *memUOW) Rollback(context.Context) error {
	u.reset()

	return nil
}

func (u *memUOW) reset() {
	u.inTx = false
	u.staged = nil
	for _, l := range u.held {
		<-l
	}
	u.held = nil
}

// write applies fn on commit, or right away outside a transaction.
// fn runs with the store mutex held.
func (u *memUOW) write(fn func()) {
	if u.inTx {
		u.staged = append(u.staged, fn)

		return
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	fn()
}

func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository {
	return memOrders{u}
}

func (u *memUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return memOrderItems{u}
}

func (u *memUOW) CartRepository() icartrepo.ICartRepository {
	return memCart{u}
}

func (u *memUOW) AddressRepository() iaddressrepo.IAddressRepository {
	return memAddresses{u}
}

func (u *memUOW) AuditRepository() iauditrepo.IAuditRepository {
	return memAudit{u}
}

type memOrders struct{ u *memUOW }

func (r memOrders) Insert(_ context.Context, o order.Order) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	o.ID = s.id()
	s.mu.Unlock()

	r.u.write(func() { s.orders[o.ID] = o })

	return o, nil
}

func (r memOrders) GetByID(_ context.Context, id int64) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}

	return o, nil
}

func (r memOrders) GetByNumber(_ context.Context, number string) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.Number == number {
			return o, nil
		}
	}

	return order.Order{}, order.ErrOrderNotFound
}

func (r memOrders) LockByID(ctx context.Context, id int64) (order.Order, error) {
	l := r.u.store.rowLock(id)
	select {
	case l <- struct{}{}:
		r.u.held = append(r.u.held, l)
	case <-ctx.Done():
		return order.Order{}, ctx.Err()
	}

	return r.GetByID(ctx, id)
}

func (r memOrders) LockByNumber(ctx context.Context, number string) (order.Order, error) {
	o, err := r.GetByNumber(ctx, number)
	if err != nil {
		return order.Order{}, err
	}

	return r.LockByID(ctx, o.ID)
}

func (r memOrders) UpdateStatus(_ context.Context, id int64, expected order.Guard, upd order.Update) error {
	s := r.u.store
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()

		return order.ErrStorageConflict
	}
	cur, ok := s.orders[id]
	s.mu.Unlock()
	if !ok || cur.Guard() != expected {
		return order.ErrStorageConflict
	}

	r.u.write(func() { s.orders[id] = s.orders[id].Apply(upd) })

	return nil
}

func (r memOrders) ListByStatusOlderThan(
	_ context.Context,
	status order.Status,
	cutoff time.Time,
	afterID int64,
	limit int,
) ([]order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []order.Order
	for _, o := range s.orders {
		if o.Status == status && o.OrderTime.Before(cutoff) && o.ID > afterID {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}

	return res, nil
}

func (r memOrders) filter(f *order.QueryOrdersModel) []order.Order {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []order.Order
	for _, o := range s.orders {
		switch {
		case len(f.Ids) > 0 && !slices.Contains(f.Ids, o.ID),
			len(f.UserIds) > 0 && !slices.Contains(f.UserIds, o.UserID),
			len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status),
			f.Number != "" && !strings.Contains(o.Number, f.Number),
			f.Phone != "" && !strings.Contains(o.Delivery.Phone, f.Phone),
			!f.Begin.IsZero() && o.OrderTime.Before(f.Begin),
			!f.End.IsZero() && !o.OrderTime.Before(f.End):
			continue
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].OrderTime.Equal(res[j].OrderTime) {
			return res[i].OrderTime.After(res[j].OrderTime)
		}

		return res[i].ID > res[j].ID
	})

	return res
}

func (r memOrders) Query(_ context.Context, f *order.QueryOrdersModel) ([]order.Order, error) {
	res := r.filter(f)
	if f.Offset >= len(res) {
		return nil, nil
	}
	res = res[f.Offset:]
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}

	return res, nil
}

func (r memOrders) Count(_ context.Context, f *order.QueryOrdersModel) (int64, error) {
	return int64(len(r.filter(f))), nil
}

type memOrderItems struct{ u *memUOW }

func (r memOrderItems) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	s := r.u.store
	s.mu.Lock()
	inserted := make([]orderitem.OrderItem, len(items))
	for i, item := range items {
		item.ID = s.id()
		inserted[i] = item
	}
	s.mu.Unlock()

	r.u.write(func() {
		for _, item := range inserted {
			s.items[item.OrderID] = append(s.items[item.OrderID], item)
		}
	})

	return inserted, nil
}

func (r memOrderItems) Query(_ context.Context, f *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []orderitem.OrderItem
	for orderID, items := range s.items {
		if len(f.OrderIds) > 0 && !slices.Contains(f.OrderIds, orderID) {
			continue
		}
		for _, item := range items {
			if len(f.Ids) > 0 && !slices.Contains(f.Ids, item.ID) {
				continue
			}
			res = append(res, item)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res, nil
}

type memCart struct{ u *memUOW }

func (r memCart) ListByUser(_ context.Context, userID int64) ([]cartitem.CartItem, error) {
	return r.u.store.cart(userID), nil
}

func (r memCart) ClearByUser(_ context.Context, userID int64) error {
	s := r.u.store
	r.u.write(func() { delete(s.carts, userID) })

	return nil
}

func (r memCart) InsertBatch(_ context.Context, items []cartitem.CartItem) error {
	s := r.u.store
	r.u.write(func() {
		for _, item := range items {
			item.ID = s.id()
			s.carts[item.UserID] = append(s.carts[item.UserID], item)
		}
	})

	return nil
}

type memAddresses struct{ u *memUOW }

func (r memAddresses) GetByID(_ context.Context, userID, id int64) (address.Address, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return address.Address{}, address.ErrNotFound
	}

	return a, nil
}

type memAudit struct{ u *memUOW }

func (r memAudit) LogStatusChange(_ context.Context, change auditlog.OrderStatusChange) error {
	s := r.u.store
	r.u.write(func() { s.audit = append(s.audit, change) })

	return nil
}
