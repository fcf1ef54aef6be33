package orders

import (
	"context"
	"github.com/shopspring/decimal"
	"time"
)

// Store runs fn inside one transaction. A non-nil error from fn rolls it back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
// Lookups of missing rows return ErrNotFound.
type Tx interface {
	// ProductInfos returns the requested listings keyed by id; unknown ids are absent.
	// forUpdate takes row locks on the listings.
	ProductInfos(ctx context.Context, ids []string, forUpdate bool) (map[string]ProductInfo, error)
	// DecrementStock subtracts qty or returns ErrInsufficientStock.
	DecrementStock(ctx context.Context, productInfoID string, qty decimal.Decimal) error

	ShopByUser(ctx context.Context, userID string) (Shop, error)
	ShopByID(ctx context.Context, id string) (Shop, error)
	SetShopState(ctx context.Context, shopID string, state bool) error
	User(ctx context.Context, id string) (User, error)
	Contact(ctx context.Context, id, userID string) (Contact, error)

	// LockBasket locks the user's basket order; EnsureBasket creates it first if absent.
	LockBasket(ctx context.Context, userID string) (Order, error)
	EnsureBasket(ctx context.Context, userID string) (Order, error)
	LockOrder(ctx context.Context, id string) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)

	// Items returns the order lines with Product filled, oldest first.
	Items(ctx context.Context, orderID string) ([]OrderItem, error)
	// UpsertItem inserts the line or overwrites the quantity of the existing
	// (order, product_info) line.
	UpsertItem(ctx context.Context, it OrderItem) (OrderItem, error)
	DeleteItems(ctx context.Context, orderID string, ids []string) (int, error)
	UpdateItem(ctx context.Context, it OrderItem) error

	AppendHistory(ctx context.Context, e HistoryEntry) error
	History(ctx context.Context, orderID string) ([]HistoryEntry, error)
}

// OrderFilter narrows ListOrders. Zero fields do not filter. Results are newest first.
type OrderFilter struct {
	UserID string
	ShopID string // orders containing at least one line of this shop
	Status Status
	From   time.Time // created_at >= From
	To     time.Time // created_at < To
}

// StatusCache is an optional read-through cache for order status lookups.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, bool)
	Put(ctx context.Context, v StatusView)
	Forget(ctx context.Context, orderID string)
}
