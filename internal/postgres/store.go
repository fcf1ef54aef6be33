package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"strings"
)

// Store implements orders.Store on Postgres. Order rows are locked with
// SELECT ... FOR UPDATE for the lifetime of the transaction.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txn{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txn struct{ tx pgx.Tx }

func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrNotFound
	}
	return err
}

// NUMERIC columns travel as text so decimal precision is kept exactly.
func scanDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode numeric %q: %w", s, err)
	}
	return d, nil
}

const productCols = `pi.id, pi.product_id, p.name, pi.shop_id, s.name, s.state, pi.model, pi.external_id,
	pi.quantity::text, pi.price::text, pi.price_rrc::text, pi.unit_of_measure`

const productJoin = `product_infos pi
	JOIN products p ON p.id = pi.product_id
	JOIN shops s ON s.id = pi.shop_id`

type scanner interface{ Scan(dest ...any) error }

// scanProduct reads productCols, optionally after leading columns in head.
func scanProduct(row scanner, head ...any) (orders.ProductInfo, error) {
	var (
		p             orders.ProductInfo
		qty, pr, rrc string
	)
	dest := append(head, &p.ID, &p.ProductID, &p.ProductName, &p.ShopID, &p.ShopName, &p.ShopState,
		&p.Model, &p.ExternalID, &qty, &pr, &rrc, &p.Unit)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	var err error
	if p.Quantity, err = scanDecimal(qty); err != nil {
		return p, err
	}
	if p.Price, err = scanDecimal(pr); err != nil {
		return p, err
	}
	if p.PriceRRC, err = scanDecimal(rrc); err != nil {
		return p, err
	}
	return p, nil
}

func (t *txn) ProductInfos(ctx context.Context, ids []string, forUpdate bool) (map[string]orders.ProductInfo, error) {
	out := make(map[string]orders.ProductInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + productCols + ` FROM ` + productJoin + ` WHERE pi.id = ANY($1) ORDER BY pi.id`
	if forUpdate {
		q += ` FOR UPDATE OF pi`
	}
	rows, err := t.tx.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txn) DecrementStock(ctx context.Context, id string, qty decimal.Decimal) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE product_infos SET quantity = quantity - $2::numeric
		WHERE id = $1 AND quantity >= $2::numeric`, id, qty.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrInsufficientStock
	}
	return nil
}

func (t *txn) shop(ctx context.Context, where string, arg string) (orders.Shop, error) {
	var (
		sh  orders.Shop
		uid *string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, name, user_id, state FROM shops WHERE `+where+` LIMIT 1`, arg).
		Scan(&sh.ID, &sh.Name, &uid, &sh.State)
	if err != nil {
		return orders.Shop{}, noRows(err)
	}
	if uid != nil {
		sh.UserID = *uid
	}
	return sh, nil
}

func (t *txn) ShopByUser(ctx context.Context, userID string) (orders.Shop, error) {
	return t.shop(ctx, "user_id = $1", userID)
}

func (t *txn) ShopByID(ctx context.Context, id string) (orders.Shop, error) {
	return t.shop(ctx, "id = $1", id)
}

func (t *txn) SetShopState(ctx context.Context, shopID string, state bool) error {
	ct, err := t.tx.Exec(ctx, `UPDATE shops SET state = $2 WHERE id = $1`, shopID, state)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *txn) User(ctx context.Context, id string) (orders.User, error) {
	var u orders.User
	err := t.tx.QueryRow(ctx, `SELECT id, email, first_name, last_name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName)
	return u, noRows(err)
}

func (t *txn) Contact(ctx context.Context, id, userID string) (orders.Contact, error) {
	var c orders.Contact
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, zipcode, city, street, building, apartment
		FROM contacts WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Zipcode, &c.City, &c.Street, &c.Building, &c.Apartment)
	return c, noRows(err)
}

const orderCols = `id, user_id, status, delivery_address_id, created_at, updated_at`

func scanOrder(row scanner) (orders.Order, error) {
	var (
		o  orders.Order
		st string
	)
	err := row.Scan(&o.ID, &o.UserID, &st, &o.DeliveryAddressID, &o.CreatedAt, &o.UpdatedAt)
	o.Status = orders.Status(st)
	return o, err
}

func (t *txn) LockBasket(ctx context.Context, userID string) (orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id = $1 AND status = 'basket' FOR UPDATE`, userID))
	return o, noRows(err)
}

// EnsureBasket relies on the partial unique index: a concurrent insert for
// the same user waits for the first one and then does nothing.
func (t *txn) EnsureBasket(ctx context.Context, userID string) (orders.Order, error) {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status) VALUES (gen_random_uuid()::text, $1, 'basket')
		ON CONFLICT (user_id) WHERE status = 'basket' DO NOTHING`, userID); err != nil {
		return orders.Order{}, err
	}
	return t.LockBasket(ctx, userID)
}

func (t *txn) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	return o, noRows(err)
}

func (t *txn) UpdateOrder(ctx context.Context, o orders.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $2, delivery_address_id = $3, updated_at = $4
		WHERE id = $1`, o.ID, string(o.Status), o.DeliveryAddressID, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *txn) DeleteOrder(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *txn) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserID != "" {
		where = append(where, "o.user_id = "+arg(f.UserID))
	}
	if f.Status != "" {
		where = append(where, "o.status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "o.created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "o.created_at < "+arg(f.To))
	}
	if f.ShopID != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM order_items oi JOIN product_infos pi ON pi.id = oi.product_info_id
			WHERE oi.order_id = o.id AND pi.shop_id = `+arg(f.ShopID)+`)`)
	}
	q := `SELECT o.id, o.user_id, o.status, o.delivery_address_id, o.created_at, o.updated_at FROM orders o`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY o.created_at DESC, o.seq DESC`

	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *txn) Items(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_info_id, oi.quantity::text, oi.shop_confirmed, oi.status,
			oi.created_at, oi.updated_at, `+productCols+`
		FROM order_items oi JOIN `+productJoin+` ON pi.id = oi.product_info_id
		WHERE oi.order_id = $1
		ORDER BY oi.seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var (
			it     orders.OrderItem
			qty, s string
		)
		p, err := scanProduct(rows, &it.ID, &it.OrderID, &it.ProductInfoID, &qty, &it.ShopConfirmed, &s,
			&it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if it.Quantity, err = scanDecimal(qty); err != nil {
			return nil, err
		}
		it.Status = orders.ItemStatus(s)
		it.Product = &p
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *txn) UpsertItem(ctx context.Context, it orders.OrderItem) (orders.OrderItem, error) {
	var qty, s string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items(id, order_id, product_info_id, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $6)
		ON CONFLICT (order_id, product_info_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING id, quantity::text, shop_confirmed, status, created_at, updated_at`,
		it.ID, it.OrderID, it.ProductInfoID, it.Quantity.String(), string(it.Status), it.CreatedAt).
		Scan(&it.ID, &qty, &it.ShopConfirmed, &s, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return orders.OrderItem{}, err
	}
	if it.Quantity, err = scanDecimal(qty); err != nil {
		return orders.OrderItem{}, err
	}
	it.Status = orders.ItemStatus(s)
	return it, nil
}

func (t *txn) DeleteItems(ctx context.Context, orderID string, ids []string) (int, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1 AND id = ANY($2)`, orderID, ids)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (t *txn) UpdateItem(ctx context.Context, it orders.OrderItem) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE order_items SET quantity = $2::numeric, status = $3, shop_confirmed = $4, updated_at = $5
		WHERE id = $1`, it.ID, it.Quantity.String(), string(it.Status), it.ShopConfirmed, it.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *txn) AppendHistory(ctx context.Context, e orders.HistoryEntry) error {
	var details []byte
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode history details: %w", err)
		}
		details = b
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_history(id, order_id, action, details, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.OrderID, string(e.Action), details, e.UserID, e.CreatedAt)
	return err
}

func (t *txn) History(ctx context.Context, orderID string) ([]orders.HistoryEntry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, action, details, user_id, created_at
		FROM order_history WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.HistoryEntry
	for rows.Next() {
		var (
			e       orders.HistoryEntry
			action  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &action, &details, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = orders.Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode history details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
