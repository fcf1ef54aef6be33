package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	"github.com/google/uuid"
	"log"
)

// AddToBasket validates the whole batch against current stock and then writes
// every line, or nothing. An existing line for the same listing gets its
// quantity overwritten. The basket is created on first use.
func (s *Service) AddToBasket(ctx context.Context, a Actor, lines []BasketLine) ([]OrderItem, error) {
	if err := CanUseBasket(a).Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, Validation("no items given", nil)
	}
	ids := make([]string, 0, len(lines))
	for i, l := range lines {
		if l.ProductInfoID == "" {
			return nil, Validation(fmt.Sprintf("item %d: product_info_id is required", i), nil)
		}
		if err := inventory.CheckQuantity(l.Quantity); err != nil {
			return nil, Validation(fmt.Sprintf("item %d: %v", i, err), nil)
		}
		ids = append(ids, l.ProductInfoID)
	}

	var out []OrderItem
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		basket, err := tx.EnsureBasket(ctx, a.UserID)
		if err != nil {
			return err
		}
		infos, err := tx.ProductInfos(ctx, ids, false)
		if err != nil {
			return err
		}
		var unknown []string
		stock := make([]inventory.Line, 0, len(lines))
		for _, l := range lines {
			pi, ok := infos[l.ProductInfoID]
			if !ok || !pi.ShopState {
				unknown = append(unknown, l.ProductInfoID)
				continue
			}
			if err := inventory.ValidateQuantity(pi.Unit, l.Quantity); err != nil {
				return Validation(fmt.Sprintf("%s: %v", pi.ProductName, err), nil)
			}
			stock = append(stock, inventory.Line{
				ProductInfoID: pi.ID,
				Product:       pi.ProductName,
				Model:         pi.Model,
				Requested:     l.Quantity,
				Available:     pi.Quantity,
			})
		}
		if len(unknown) > 0 {
			return Validation("some products are unavailable", map[string]any{"invalid_ids": unknown})
		}
		if ok, short := inventory.Guard(stock); !ok {
			return Validation("insufficient stock: "+short[0].String(), map[string]any{"shortfalls": short})
		}

		out = out[:0]
		now := s.now()
		for _, l := range lines {
			it, err := tx.UpsertItem(ctx, OrderItem{
				ID:            uuid.NewString(),
				OrderID:       basket.ID,
				ProductInfoID: l.ProductInfoID,
				Quantity:      l.Quantity,
				Status:        ItemPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return err
			}
			pi := infos[l.ProductInfoID]
			it.Product = &pi
			out = append(out, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[basket] user %s added %d item(s)", a.UserID, len(out))
	return out, nil
}

// RemoveFromBasket deletes the given basket lines. Every id must belong to the
// caller's basket, otherwise nothing is deleted and the offending ids are reported.
func (s *Service) RemoveFromBasket(ctx context.Context, a Actor, itemIDs []string) (int, error) {
	if err := CanUseBasket(a).Err(); err != nil {
		return 0, err
	}
	if len(itemIDs) == 0 {
		return 0, Validation("no items given", nil)
	}
	var deleted int
	err := s.run(ctx, func(ctx context.Context, tx Tx, fx *effects) error {
		basket, err := tx.LockBasket(ctx, a.UserID)
		if err != nil {
			return notFoundOr(err, "basket is empty or does not exist")
		}
		items, err := tx.Items(ctx, basket.ID)
		if err != nil {
			return err
		}
		own := make(map[string]bool, len(items))
		for _, it := range items {
			own[it.ID] = true
		}
		var invalid []string
		for _, id := range itemIDs {
			if !own[id] {
				invalid = append(invalid, id)
			}
		}
		if len(invalid) > 0 {
			return Validation("some items were not found in the basket", map[string]any{"invalid_ids": invalid})
		}
		deleted, err = tx.DeleteItems(ctx, basket.ID, itemIDs)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[basket] user %s removed %d item(s)", a.UserID, deleted)
	return deleted, nil
}

// GetBasket returns the basket lines and their total. A missing basket is an
// empty basket.
func (s *Service) GetBasket(ctx context.Context, a Actor) (Basket, error) {
	if err := CanUseBasket(a).Err(); err != nil {
		return Basket{}, err
	}
	b := Basket{Items: []OrderItem{}}
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		basket, err := tx.LockBasket(ctx, a.UserID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		items, err := tx.Items(ctx, basket.ID)
		if err != nil {
			return err
		}
		if items != nil {
			b.Items = items
		}
		return nil
	})
	if err != nil {
		return Basket{}, err
	}
	b.Total = Total(b.Items)
	return b, nil
}
