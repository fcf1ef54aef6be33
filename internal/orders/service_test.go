package orders_test

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type mailbox struct {
	mu   sync.Mutex
	sent []orders.Email
	fail bool
}

func (m *mailbox) Enqueue(_ context.Context, e orders.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("queue down")
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *mailbox) to(addr string) []orders.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orders.Email
	for _, e := range m.sent {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

func (m *mailbox) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type fixture struct {
	store *memstore.Store
	svc   *orders.Service
	mail  *mailbox
	buyer orders.Actor
	other orders.Actor
	shopA orders.Actor
	shopB orders.Actor
	shopC orders.Actor
}

const (
	phone   = "pi-phone"   // shop A, 5 pcs at 100
	cable   = "pi-cable"   // shop A, 20 pcs at 5
	charger = "pi-charger" // shop B, 10 pcs at 50
	flour   = "pi-flour"   // shop B, 7.5 kg at 2
	closed  = "pi-closed"  // shop C, not accepting orders
	contact = "c-home"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.AddUser(orders.User{ID: "u-buyer", Email: "buyer@example.com", FirstName: "Ivan"})
	st.AddUser(orders.User{ID: "u-other", Email: "other@example.com"})
	st.AddUser(orders.User{ID: "u-shop-a", Email: "a@shop.example.com"})
	st.AddUser(orders.User{ID: "u-shop-b", Email: "b@shop.example.com"})
	st.AddUser(orders.User{ID: "u-shop-c", Email: "c@shop.example.com"})
	st.AddShop(orders.Shop{ID: "shop-a", Name: "Alpha", UserID: "u-shop-a", State: true})
	st.AddShop(orders.Shop{ID: "shop-b", Name: "Beta", UserID: "u-shop-b", State: true})
	st.AddShop(orders.Shop{ID: "shop-c", Name: "Gamma", UserID: "u-shop-c", State: false})
	st.AddProductInfo(orders.ProductInfo{ID: phone, ProductName: "Phone", ShopID: "shop-a", ExternalID: "A-1", Quantity: d("5"), Price: d("100"), Unit: inventory.UnitPieces})
	st.AddProductInfo(orders.ProductInfo{ID: cable, ProductName: "Cable", ShopID: "shop-a", Quantity: d("20"), Price: d("5"), Unit: inventory.UnitPieces})
	st.AddProductInfo(orders.ProductInfo{ID: charger, ProductName: "Charger", ShopID: "shop-b", Quantity: d("10"), Price: d("50"), Unit: inventory.UnitPieces})
	st.AddProductInfo(orders.ProductInfo{ID: flour, ProductName: "Flour", ShopID: "shop-b", Quantity: d("7.5"), Price: d("2"), Unit: "kg"})
	st.AddProductInfo(orders.ProductInfo{ID: closed, ProductName: "Lamp", ShopID: "shop-c", Quantity: d("3"), Price: d("10"), Unit: inventory.UnitPieces})
	st.AddContact(orders.Contact{ID: contact, UserID: "u-buyer", City: "Moscow", Street: "Tverskaya", Building: "1"})
	st.AddContact(orders.Contact{ID: "c-other", UserID: "u-other", City: "Kazan"})

	mail := &mailbox{}
	return &fixture{
		store: st,
		svc:   &orders.Service{Store: st, Notifier: mail},
		mail:  mail,
		buyer: orders.Actor{UserID: "u-buyer", Email: "buyer@example.com", FirstName: "Ivan", Role: orders.RoleBuyer},
		other: orders.Actor{UserID: "u-other", Email: "other@example.com", Role: orders.RoleBuyer},
		shopA: orders.Actor{UserID: "u-shop-a", Email: "a@shop.example.com", Role: orders.RoleShop},
		shopB: orders.Actor{UserID: "u-shop-b", Email: "b@shop.example.com", Role: orders.RoleShop},
		shopC: orders.Actor{UserID: "u-shop-c", Email: "c@shop.example.com", Role: orders.RoleShop},
	}
}

func line(id, qty string) orders.BasketLine {
	return orders.BasketLine{ProductInfoID: id, Quantity: d(qty)}
}

// placed builds a confirmed order for the buyer with the given lines.
func (f *fixture) placed(t *testing.T, lines ...orders.BasketLine) orders.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.AddToBasket(ctx, f.buyer, lines)
	require.NoError(t, err)
	o, err := f.svc.CreateFromBasket(ctx, f.buyer)
	require.NoError(t, err)
	o, err = f.svc.PlaceOrder(ctx, f.buyer, o.ID, contact)
	require.NoError(t, err)
	require.Equal(t, orders.StatusConfirmed, o.Status)
	f.mail.reset()
	return o
}

func itemFor(t *testing.T, o orders.Order, productInfoID string) orders.OrderItem {
	t.Helper()
	for _, it := range o.Items {
		if it.ProductInfoID == productInfoID {
			return it
		}
	}
	t.Fatalf("order %s has no line for %s", o.ID, productInfoID)
	return orders.OrderItem{}
}

func requireKind(t *testing.T, err error, kind orders.Kind) *orders.Error {
	t.Helper()
	require.Error(t, err)
	var e *orders.Error
	require.True(t, errors.As(err, &e), "expected domain error, got %v", err)
	require.Equal(t, kind, e.Kind, e.Message)
	return e
}

func actions(h []orders.HistoryEntry) []orders.Action {
	out := make([]orders.Action, 0, len(h))
	for _, e := range h {
		out = append(out, e.Action)
	}
	return out
}

func count(h []orders.HistoryEntry, a orders.Action) int {
	n := 0
	for _, e := range h {
		if e.Action == a {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

type memCache struct {
	mu        sync.Mutex
	views     map[string]orders.StatusView
	puts      int
	forgotten []string
}

func newMemCache() *memCache { return &memCache{views: map[string]orders.StatusView{}} }

func (c *memCache) Get(_ context.Context, id string) (orders.StatusView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[id]
	return v, ok
}

func (c *memCache) Put(_ context.Context, v orders.StatusView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.views[v.OrderID] = v
}

func (c *memCache) Forget(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, id)
	delete(c.views, id)
}
