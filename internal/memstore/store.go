// Package memstore is an in-process orders.Store. One mutex guards the whole
// dataset, so every transaction behaves as if it held all row locks; a failed
// transaction restores the snapshot taken when it began.
package memstore

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"maps"
	"sort"
	"sync"
	"time"
)

type state struct {
	users    map[string]orders.User
	shops    map[string]orders.Shop
	products map[string]orders.ProductInfo
	contacts map[string]orders.Contact
	orders   map[string]orders.Order
	items    map[string]orders.OrderItem
	seq      map[string]int
	history  []orders.HistoryEntry
	next     int
}

func (s state) clone() state {
	return state{
		users:    maps.Clone(s.users),
		shops:    maps.Clone(s.shops),
		products: maps.Clone(s.products),
		contacts: maps.Clone(s.contacts),
		orders:   maps.Clone(s.orders),
		items:    maps.Clone(s.items),
		seq:      maps.Clone(s.seq),
		history:  append([]orders.HistoryEntry(nil), s.history...),
		next:     s.next,
	}
}

type Store struct {
	// Now stamps orders created by EnsureBasket. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: state{
		users:    map[string]orders.User{},
		shops:    map[string]orders.Shop{},
		products: map[string]orders.ProductInfo{},
		contacts: map[string]orders.Contact{},
		orders:   map[string]orders.Order{},
		items:    map[string]orders.OrderItem{},
		seq:      map[string]int{},
	}}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(ctx, &tx{st: &s.st, now: s.clock}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) clock() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Seeding helpers for the catalog and identity data the core only reads.

func (s *Store) AddUser(u orders.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) AddShop(sh orders.Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.shops[sh.ID] = sh
}

func (s *Store) AddProductInfo(p orders.ProductInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

func (s *Store) AddContact(c orders.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.contacts[c.ID] = c
}

// ProductInfo returns the listing as currently stored.
func (s *Store) ProductInfo(id string) (orders.ProductInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// BasketCount returns how many basket orders the user holds.
func (s *Store) BasketCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.st.orders {
		if o.UserID == userID && o.Status == orders.StatusBasket {
			n++
		}
	}
	return n
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) product(id string) (orders.ProductInfo, bool) {
	p, ok := t.st.products[id]
	if !ok {
		return p, false
	}
	if sh, ok := t.st.shops[p.ShopID]; ok {
		p.ShopName = sh.Name
		p.ShopState = sh.State
	}
	return p, true
}

func (t *tx) ProductInfos(_ context.Context, ids []string, _ bool) (map[string]orders.ProductInfo, error) {
	out := make(map[string]orders.ProductInfo, len(ids))
	for _, id := range ids {
		if p, ok := t.product(id); ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *tx) DecrementStock(_ context.Context, id string, qty decimal.Decimal) error {
	p, ok := t.st.products[id]
	if !ok {
		return orders.ErrNotFound
	}
	left, err := inventory.Decrement(p.Quantity, qty)
	if err != nil {
		return orders.ErrInsufficientStock
	}
	p.Quantity = left
	t.st.products[id] = p
	return nil
}

func (t *tx) ShopByUser(_ context.Context, userID string) (orders.Shop, error) {
	for _, sh := range t.st.shops {
		if sh.UserID == userID {
			return sh, nil
		}
	}
	return orders.Shop{}, orders.ErrNotFound
}

func (t *tx) ShopByID(_ context.Context, id string) (orders.Shop, error) {
	sh, ok := t.st.shops[id]
	if !ok {
		return orders.Shop{}, orders.ErrNotFound
	}
	return sh, nil
}

func (t *tx) SetShopState(_ context.Context, id string, state bool) error {
	sh, ok := t.st.shops[id]
	if !ok {
		return orders.ErrNotFound
	}
	sh.State = state
	t.st.shops[id] = sh
	return nil
}

func (t *tx) User(_ context.Context, id string) (orders.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return orders.User{}, orders.ErrNotFound
	}
	return u, nil
}

func (t *tx) Contact(_ context.Context, id, userID string) (orders.Contact, error) {
	c, ok := t.st.contacts[id]
	if !ok || c.UserID != userID {
		return orders.Contact{}, orders.ErrNotFound
	}
	return c, nil
}

func (t *tx) LockBasket(_ context.Context, userID string) (orders.Order, error) {
	for _, o := range t.st.orders {
		if o.UserID == userID && o.Status == orders.StatusBasket {
			return o, nil
		}
	}
	return orders.Order{}, orders.ErrNotFound
}

func (t *tx) EnsureBasket(ctx context.Context, userID string) (orders.Order, error) {
	if o, err := t.LockBasket(ctx, userID); err == nil {
		return o, nil
	}
	o := orders.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    orders.StatusBasket,
		CreatedAt: t.now(),
	}
	o.UpdatedAt = o.CreatedAt
	t.st.orders[o.ID] = o
	t.st.seq[o.ID] = t.bump()
	return o, nil
}

func (t *tx) LockOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (t *tx) UpdateOrder(_ context.Context, o orders.Order) error {
	cur, ok := t.st.orders[o.ID]
	if !ok {
		return orders.ErrNotFound
	}
	cur.Status = o.Status
	cur.DeliveryAddressID = o.DeliveryAddressID
	cur.UpdatedAt = o.UpdatedAt
	t.st.orders[o.ID] = cur
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := t.st.orders[id]; !ok {
		return orders.ErrNotFound
	}
	delete(t.st.orders, id)
	for iid, it := range t.st.items {
		if it.OrderID == id {
			delete(t.st.items, iid)
		}
	}
	kept := t.st.history[:0]
	for _, e := range t.st.history {
		if e.OrderID != id {
			kept = append(kept, e)
		}
	}
	t.st.history = kept
	return nil
}

func (t *tx) ListOrders(_ context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range t.st.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
			continue
		}
		if f.ShopID != "" && !t.hasShopLine(o.ID, f.ShopID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return t.st.seq[out[i].ID] > t.st.seq[out[j].ID]
	})
	return out, nil
}

func (t *tx) hasShopLine(orderID, shopID string) bool {
	for _, it := range t.st.items {
		if it.OrderID == orderID && t.st.products[it.ProductInfoID].ShopID == shopID {
			return true
		}
	}
	return false
}

func (t *tx) Items(_ context.Context, orderID string) ([]orders.OrderItem, error) {
	var out []orders.OrderItem
	for _, it := range t.st.items {
		if it.OrderID != orderID {
			continue
		}
		if p, ok := t.product(it.ProductInfoID); ok {
			it.Product = &p
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return t.st.seq[out[i].ID] < t.st.seq[out[j].ID] })
	return out, nil
}

func (t *tx) UpsertItem(_ context.Context, it orders.OrderItem) (orders.OrderItem, error) {
	if _, ok := t.st.orders[it.OrderID]; !ok {
		return orders.OrderItem{}, orders.ErrNotFound
	}
	for id, cur := range t.st.items {
		if cur.OrderID == it.OrderID && cur.ProductInfoID == it.ProductInfoID {
			cur.Quantity = it.Quantity
			cur.UpdatedAt = it.UpdatedAt
			t.st.items[id] = cur
			return cur, nil
		}
	}
	it.Product = nil
	t.st.items[it.ID] = it
	t.st.seq[it.ID] = t.bump()
	return it, nil
}

func (t *tx) DeleteItems(_ context.Context, orderID string, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if it, ok := t.st.items[id]; ok && it.OrderID == orderID {
			delete(t.st.items, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) UpdateItem(_ context.Context, it orders.OrderItem) error {
	cur, ok := t.st.items[it.ID]
	if !ok {
		return orders.ErrNotFound
	}
	cur.Quantity = it.Quantity
	cur.Status = it.Status
	cur.ShopConfirmed = it.ShopConfirmed
	cur.UpdatedAt = it.UpdatedAt
	t.st.items[it.ID] = cur
	return nil
}

func (t *tx) AppendHistory(_ context.Context, e orders.HistoryEntry) error {
	if _, ok := t.st.orders[e.OrderID]; !ok {
		return orders.ErrNotFound
	}
	t.st.history = append(t.st.history, e)
	return nil
}

func (t *tx) History(_ context.Context, orderID string) ([]orders.HistoryEntry, error) {
	var out []orders.HistoryEntry
	for _, e := range t.st.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) bump() int {
	t.st.next++
	return t.st.next
}
