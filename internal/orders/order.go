package orders

import (
	"context"
	"log"
)

// CreateFromBasket turns the caller's basket into a "new" order.
func (s *Service) CreateFromBasket(ctx context.Context, a Actor) (Order, error) {
	if err := CanUseBasket(a).Err(); err != nil {
		return Order{}, err
	}
	var o Order
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		basket, err := tx.LockBasket(ctx, a.UserID)
		if err != nil {
			return notFoundOr(err, "basket is empty or does not exist")
		}
		items, err := tx.Items(ctx, basket.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return Validation("cannot create an order from an empty basket", nil)
		}
		if err := s.transition(ctx, tx, fx, &basket, StatusNew, &a); err != nil {
			return err
		}
		basket.Items = items
		o = basket
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[orders] user %s created order %s", a.UserID, o.ID)
	return o, nil
}

// DeleteOrder removes a "new" order owned by the caller together with its lines.
func (s *Service) DeleteOrder(ctx context.Context, a Actor, orderID string) error {
	if orderID == "" {
		return Validation("order_id is required", nil)
	}
	return s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		if !CanManageOrder(a, o).Allowed {
			return NotFound("order not found")
		}
		if o.Status != StatusNew {
			return Validation("only orders in status 'new' can be deleted", map[string]any{"status": o.Status})
		}
		fx.touch(o.ID)
		return tx.DeleteOrder(ctx, o.ID)
	})
}

// PlaceOrder attaches the delivery address and confirms a "new" order, then
// notifies the buyer and every supplier shop in it.
func (s *Service) PlaceOrder(ctx context.Context, a Actor, orderID, contactID string) (Order, error) {
	if orderID == "" {
		return Order{}, Validation("order_id is required", nil)
	}
	if contactID == "" {
		return Order{}, Validation("contact is required", nil)
	}
	if err := CanUseBasket(a).Err(); err != nil {
		return Order{}, err
	}
	var o Order
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		contact, err := tx.Contact(ctx, contactID, a.UserID)
		if err != nil {
			return notFoundOr(err, "contact not found")
		}
		o, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found or not in status 'new'")
		}
		if o.UserID != a.UserID || o.Status != StatusNew {
			return NotFound("order not found or not in status 'new'")
		}
		items, err := tx.Items(ctx, o.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return Validation("cannot place an empty order", nil)
		}
		if a.Email == "" {
			return Validation("user has no email", nil)
		}

		o.DeliveryAddressID = &contact.ID
		if err := s.transition(ctx, tx, fx, &o, StatusConfirmed, &a); err != nil {
			return err
		}
		o.Items = items

		fx.mail(orderConfirmationEmail(a, o, contact))
		for _, g := range groupByShop(items) {
			shop, err := tx.ShopByID(ctx, g.shopID)
			if err != nil {
				return err
			}
			owner, err := tx.User(ctx, shop.UserID)
			if err != nil {
				log.Printf("[orders] shop %s owner lookup: %v", shop.ID, err)
				continue
			}
			fx.mail(supplierRequestEmail(owner.Email, shop, a, o, g.items, contact))
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[orders] user %s placed order %s", a.UserID, o.ID)
	return o, nil
}

// ListOrders returns the caller's orders, newest first, optionally narrowed by
// status. An unknown status yields an empty list.
func (s *Service) ListOrders(ctx context.Context, a Actor, status string) ([]Order, error) {
	if err := CanUseBasket(a).Err(); err != nil {
		return nil, err
	}
	f := OrderFilter{UserID: a.UserID}
	if status != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return []Order{}, nil
		}
		f.Status = st
	}
	out := []Order{}
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		list, err := tx.ListOrders(ctx, f)
		if err != nil {
			return err
		}
		for _, o := range list {
			if o.Items, err = tx.Items(ctx, o.ID); err != nil {
				return err
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// OrderStatus returns the status of one of the caller's orders, read through
// the status cache when one is configured.
func (s *Service) OrderStatus(ctx context.Context, a Actor, orderID string) (StatusView, error) {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, orderID); ok {
			if v.UserID != a.UserID {
				return StatusView{}, NotFound("order not found")
			}
			return v, nil
		}
	}
	var v StatusView
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		v = StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status}
		// Cache while the row lock is held so a transition's Forget, which
		// runs after its own commit, always lands after this Put.
		if s.Cache != nil {
			s.Cache.Put(ctx, v)
		}
		return nil
	})
	if err != nil {
		return StatusView{}, err
	}
	if v.UserID != a.UserID {
		return StatusView{}, NotFound("order not found")
	}
	return v, nil
}

// AdvanceStatus moves an order along the delivery part of the state machine
// (assembled → sent → delivered). Staff only.
func (s *Service) AdvanceStatus(ctx context.Context, a Actor, orderID string, to Status) (Order, error) {
	if err := CanAdvance(a).Err(); err != nil {
		return Order{}, err
	}
	if to != StatusSent && to != StatusDelivered {
		return Order{}, Validation("status can only be advanced to 'sent' or 'delivered'", nil)
	}
	var o Order
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		var err error
		o, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		return s.transition(ctx, tx, fx, &o, to, &a)
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[orders] order %s moved to %s by %s", o.ID, o.Status, a.UserID)
	return o, nil
}

// History returns the audit trail of an order, oldest first. The owner and any
// shop with lines in the order may read it.
func (s *Service) History(ctx context.Context, a Actor, orderID string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		hasLines := false
		if a.Role == RoleShop && a.UserID != o.UserID {
			shop, err := tx.ShopByUser(ctx, a.UserID)
			if err == nil {
				items, err := tx.Items(ctx, o.ID)
				if err != nil {
					return err
				}
				hasLines = len(itemsOfShop(items, shop.ID)) > 0
			} else if !isNotFound(err) {
				return err
			}
		}
		if err := CanViewHistory(a, o, hasLines).Err(); err != nil {
			return err
		}
		out, err = tx.History(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []HistoryEntry{}
	}
	return out, nil
}

type shopGroup struct {
	shopID string
	items  []OrderItem
}

// groupByShop splits lines per supplier, keeping first-seen shop order.
func groupByShop(items []OrderItem) []shopGroup {
	var groups []shopGroup
	idx := map[string]int{}
	for _, it := range items {
		sid := it.shopID()
		i, ok := idx[sid]
		if !ok {
			i = len(groups)
			idx[sid] = i
			groups = append(groups, shopGroup{shopID: sid})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

func itemsOfShop(items []OrderItem, shopID string) []OrderItem {
	var out []OrderItem
	for _, it := range items {
		if it.shopID() == shopID {
			out = append(out, it)
		}
	}
	return out
}
