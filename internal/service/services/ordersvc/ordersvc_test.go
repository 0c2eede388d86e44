package ordersvc

import (
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/payment/sandbox"
	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = t
}

type fixture struct {
	svc     *OrderService
	store   *memStore
	gateway *sandbox.Gateway
	clock   *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   newMemStore(),
		gateway: sandbox.NewGateway(),
		clock:   &testClock{t: base},
	}
	f.svc = MustNewOrderService(
		WithUnitOfWorkFactory(f.store.factory),
		WithPaymentGateway(f.gateway),
		WithClock(f.clock.Now),
	)

	return f
}

// seedCart gives the user an address and a cart of one 10.00 dish and two 5.00 dishes.
func (f *fixture) seedCart(userID int64) address.Address {
	addr := f.store.addAddress(address.Address{
		UserID:       userID,
		Consignee:    "Li Lei",
		Phone:        "13800000000",
		ProvinceName: "Zhejiang",
		CityName:     "Hangzhou",
		DistrictName: "Xihu",
		Detail:       "1 Wensan Road",
	})
	f.store.addCartItem(cartitem.CartItem{
		UserID:    userID,
		Name:      "Kung Pao Chicken",
		DishID:    1,
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("10.00"),
	})
	f.store.addCartItem(cartitem.CartItem{
		UserID:    userID,
		Name:      "Rice",
		DishID:    2,
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("5.00"),
	})

	return addr
}

func (f *fixture) submit(t *testing.T, userID int64) order.Order {
	t.Helper()

	addr := f.seedCart(userID)
	o, err := f.svc.Submit(t.Context(), userID, SubmitRequest{AddressBookID: addr.ID})
	require.NoError(t, err)

	return o
}

func (f *fixture) paid(t *testing.T, userID int64) order.Order {
	t.Helper()

	o := f.submit(t, userID)
	o, err := f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.NoError(t, err)

	return o
}

func (f *fixture) events(orderID int64) []order.Event {
	var events []order.Event
	for _, change := range f.store.auditLog() {
		if change.OrderID == orderID {
			events = append(events, change.Event)
		}
	}

	return events
}

func addrFor(userID int64) address.Address {
	return address.Address{UserID: userID, Consignee: "Han Meimei", Phone: "13700000000", Detail: "2 Tianmu Road"}
}
