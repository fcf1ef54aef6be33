package orders

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"log"
	"time"
)

// Confirm is one supplier's commitment on a confirmed order: the shop rejects
// the listed lines and accepts the rest of its pending lines, decrementing
// stock for accepted lines. Afterwards the order is settled across all shops:
// assembled when every remaining line is confirmed, canceled when none remain.
//
// The order row stays locked for the whole call, so concurrent suppliers are
// serialized and settlement always sees a consistent set of lines.
func (s *Service) Confirm(ctx context.Context, a Actor, orderID string, rejectedIDs []string) (Order, error) {
	if orderID == "" {
		return Order{}, Validation("order_id is required", nil)
	}
	if err := CanPartner(a).Err(); err != nil {
		return Order{}, err
	}
	var (
		o        Order
		shop     Shop
		rejected []OrderItem
	)
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		var err error
		o, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		shop, err = tx.ShopByUser(ctx, a.UserID)
		if err != nil {
			return notFoundOr(err, "shop not found")
		}
		if o.Status != StatusConfirmed {
			return Validation("order must be in status 'confirmed'", map[string]any{"status": o.Status})
		}
		items, err := tx.Items(ctx, o.ID)
		if err != nil {
			return err
		}
		mine := itemsOfShop(items, shop.ID)
		if len(mine) == 0 {
			return Forbidden("this order has no items from your shop")
		}

		pending := map[string]OrderItem{}
		for _, it := range mine {
			if it.Status == ItemPending {
				pending[it.ID] = it
			}
		}
		if len(pending) == 0 {
			return Validation("your items in this order were already processed", nil)
		}
		reject := map[string]bool{}
		var invalid []string
		for _, id := range rejectedIDs {
			if _, ok := pending[id]; !ok {
				invalid = append(invalid, id)
				continue
			}
			reject[id] = true
		}
		if len(invalid) > 0 {
			return Validation("rejected items must be pending items of your shop", map[string]any{"invalid_ids": invalid})
		}

		rejected = rejected[:0]
		var accepted []OrderItem
		for _, it := range mine {
			if _, ok := pending[it.ID]; !ok {
				continue
			}
			if reject[it.ID] {
				rejected = append(rejected, it)
			} else {
				accepted = append(accepted, it)
			}
		}

		// Stock guard against fresh, locked listing rows.
		ids := make([]string, 0, len(accepted))
		for _, it := range accepted {
			ids = append(ids, it.ProductInfoID)
		}
		stock, err := tx.ProductInfos(ctx, ids, true)
		if err != nil {
			return err
		}
		lines := make([]inventory.Line, 0, len(accepted))
		for _, it := range accepted {
			pi := stock[it.ProductInfoID]
			lines = append(lines, inventory.Line{
				ItemID:        it.ID,
				ProductInfoID: it.ProductInfoID,
				Product:       pi.ProductName,
				Model:         pi.Model,
				Requested:     it.Quantity,
				Available:     pi.Quantity,
			})
		}
		if ok, short := inventory.Guard(lines); !ok {
			return Validation("insufficient stock", map[string]any{"shortfalls": short})
		}

		if err := s.record(ctx, tx, o.ID, &a, ActionPartnerAction, map[string]any{
			"message":         "supplier started confirmation",
			"confirmed_count": len(accepted),
			"rejected_count":  len(rejected),
			"shop":            shop.Name,
		}); err != nil {
			return err
		}

		now := s.now()
		byID := make(map[string]int, len(items))
		for i, it := range items {
			byID[it.ID] = i
		}
		for _, it := range rejected {
			it.Status = ItemRejected
			it.ShopConfirmed = false
			it.UpdatedAt = now
			if err := tx.UpdateItem(ctx, it); err != nil {
				return err
			}
			items[byID[it.ID]] = it
			if err := s.record(ctx, tx, o.ID, &a, ActionItemRejected, itemDetails(it, shop)); err != nil {
				return err
			}
		}
		for _, it := range accepted {
			if err := tx.DecrementStock(ctx, it.ProductInfoID, it.Quantity); err != nil {
				if errors.Is(err, ErrInsufficientStock) {
					return Validation("insufficient stock", map[string]any{"item_id": it.ID})
				}
				return err
			}
			it.Status = ItemConfirmed
			it.ShopConfirmed = true
			it.UpdatedAt = now
			if err := tx.UpdateItem(ctx, it); err != nil {
				return err
			}
			items[byID[it.ID]] = it
			if err := s.record(ctx, tx, o.ID, &a, ActionItemConfirmed, itemDetails(it, shop)); err != nil {
				return err
			}
		}
		fx.touch(o.ID)

		buyer, err := tx.User(ctx, o.UserID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if len(rejected) > 0 {
			fx.mail(itemsRejectedEmail(buyer, o, rejected))
		}

		next, settled := Settle(items)
		o.Items = items
		if !settled {
			return nil
		}
		prev := o.Status
		o.Status = next
		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if next == StatusCanceled {
			fx.mail(orderCanceledEmail(buyer, o))
			return s.record(ctx, tx, o.ID, &a, ActionOrderCanceled, map[string]any{
				"previous_status": string(prev),
				"reason":          "all items were rejected by suppliers",
			})
		}
		fx.mail(orderAssembledEmail(buyer, o))
		return s.record(ctx, tx, o.ID, &a, ActionOrderAssembled, map[string]any{
			"previous_status": string(prev),
		})
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[partner] shop %q processed order %s: rejected %d, status %s", shop.Name, o.ID, len(rejected), o.Status)
	return o, nil
}

func itemDetails(it OrderItem, shop Shop) map[string]any {
	d := map[string]any{
		"item_id":  it.ID,
		"quantity": it.Quantity.String(),
		"shop":     shop.Name,
	}
	if it.Product != nil {
		d["product"] = it.Product.ProductName
		d["model"] = it.Product.Model
	}
	return d
}

// ShopOrderFilter narrows ShopOrders. Dates are YYYY-MM-DD and inclusive.
type ShopOrderFilter struct {
	Status   string
	DateFrom string
	DateTo   string
}

const dateLayout = "2006-01-02"

// ShopOrders lists orders containing the caller's shop lines, newest first.
// Each order carries only that shop's lines and their total. Open baskets are
// not orders yet and are never shown.
func (s *Service) ShopOrders(ctx context.Context, a Actor, f ShopOrderFilter) ([]ShopOrder, error) {
	if err := CanPartner(a).Err(); err != nil {
		return nil, err
	}
	var filter OrderFilter
	if f.Status != "" {
		st, ok := ParseStatus(f.Status)
		if !ok {
			return nil, Validation("invalid status", map[string]any{"status": f.Status})
		}
		filter.Status = st
	}
	if f.DateFrom != "" {
		t, err := time.Parse(dateLayout, f.DateFrom)
		if err != nil {
			return nil, Validation("invalid date_from, use YYYY-MM-DD", nil)
		}
		filter.From = t
	}
	if f.DateTo != "" {
		t, err := time.Parse(dateLayout, f.DateTo)
		if err != nil {
			return nil, Validation("invalid date_to, use YYYY-MM-DD", nil)
		}
		filter.To = t.AddDate(0, 0, 1)
	}

	out := []ShopOrder{}
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		shop, err := tx.ShopByUser(ctx, a.UserID)
		if err != nil {
			return notFoundOr(err, "shop not found")
		}
		filter.ShopID = shop.ID
		list, err := tx.ListOrders(ctx, filter)
		if err != nil {
			return err
		}
		for _, o := range list {
			if o.Status == StatusBasket {
				continue
			}
			items, err := tx.Items(ctx, o.ID)
			if err != nil {
				return err
			}
			mine := itemsOfShop(items, shop.ID)
			so := ShopOrder{
				OrderID:   o.ID,
				Status:    o.Status,
				CreatedAt: o.CreatedAt,
				Contact:   "-",
				Items:     mine,
				Total:     Total(mine),
			}
			if so.Buyer, err = tx.User(ctx, o.UserID); err != nil && !isNotFound(err) {
				return err
			}
			if o.DeliveryAddressID != nil {
				c, err := tx.Contact(ctx, *o.DeliveryAddressID, o.UserID)
				if err == nil {
					so.Contact = c.String()
				} else if !isNotFound(err) {
					return err
				}
			}
			out = append(out, so)
		}
		return nil
	})
	return out, err
}

// ShopState returns the caller's shop.
func (s *Service) ShopState(ctx context.Context, a Actor) (Shop, error) {
	if err := CanPartner(a).Err(); err != nil {
		return Shop{}, err
	}
	var shop Shop
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		shop, err = tx.ShopByUser(ctx, a.UserID)
		return notFoundOr(err, "shop not found")
	})
	return shop, err
}

// SetShopState switches whether the caller's shop accepts orders. Listings of
// a closed shop cannot be added to baskets.
func (s *Service) SetShopState(ctx context.Context, a Actor, state bool) (Shop, error) {
	if err := CanPartner(a).Err(); err != nil {
		return Shop{}, err
	}
	var shop Shop
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		shop, err = tx.ShopByUser(ctx, a.UserID)
		if err != nil {
			return notFoundOr(err, "shop not found")
		}
		shop.State = state
		return tx.SetShopState(ctx, shop.ID, state)
	})
	if err != nil {
		return Shop{}, err
	}
	log.Printf("[partner] shop %q state set to %t by %s", shop.Name, state, a.UserID)
	return shop, nil
}
