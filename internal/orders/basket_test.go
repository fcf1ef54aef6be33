package orders_test

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestAddToBasket_TotalAndOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "3")})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, orders.ItemPending, items[0].Status)

	b, err := f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.True(t, b.Total.Equal(d("300")), b.Total.String())

	// More than the 5 in stock: the whole call fails and the line keeps 3.
	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "10")})
	e := requireKind(t, err, orders.KindValidation)
	assert.Contains(t, e.Details, "shortfalls")

	b, err = f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	assert.True(t, b.Items[0].Quantity.Equal(d("3")))

	// Re-adding overwrites rather than adds.
	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "4")})
	require.NoError(t, err)
	b, err = f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.True(t, b.Items[0].Quantity.Equal(d("4")))
	assert.True(t, b.Total.Equal(d("400")))

	assert.Equal(t, 1, f.store.BasketCount(f.buyer.UserID))
}

func TestAddToBasket_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "2"), line(charger, "11")})
	requireKind(t, err, orders.KindValidation)

	b, err := f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	assert.Empty(t, b.Items)
	assert.True(t, b.Total.IsZero())
	assert.Equal(t, 0, f.store.BasketCount(f.buyer.UserID), "lazy basket creation must roll back")
}

func TestAddToBasket_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToBasket(ctx, f.buyer, nil)
	requireKind(t, err, orders.KindValidation)

	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "0")})
	requireKind(t, err, orders.KindValidation)

	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "1.5")})
	requireKind(t, err, orders.KindValidation)

	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(flour, "1.5")})
	require.NoError(t, err, "fractional quantities are fine for weighed goods")

	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line("pi-missing", "1"), line(closed, "1")})
	e := requireKind(t, err, orders.KindValidation)
	assert.Equal(t, map[string]any{"invalid_ids": []string{"pi-missing", closed}}, e.Details)

	_, err = f.svc.AddToBasket(ctx, orders.Actor{}, []orders.BasketLine{line(phone, "1")})
	requireKind(t, err, orders.KindForbidden)
}

func TestAddToBasket_QuantityPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, qty := range []string{"0.001", "1.005"} {
		_, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(flour, qty)})
		e := requireKind(t, err, orders.KindValidation)
		assert.Contains(t, e.Message, "decimal places", qty)
	}

	_, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(flour, "123456789")})
	e := requireKind(t, err, orders.KindValidation)
	assert.Contains(t, e.Message, "integer digits")

	b, err := f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	assert.Empty(t, b.Items, "rejected quantities must not reach the basket")

	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(flour, "1.250")})
	require.NoError(t, err, "trailing zeros within two decimals are accepted")
	b, err = f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.True(t, b.Items[0].Quantity.Equal(d("1.25")))
}

func TestAddToBasket_ClosedShop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetShopState(ctx, f.shopA, false)
	require.NoError(t, err)
	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "1")})
	requireKind(t, err, orders.KindValidation)

	shop, err := f.svc.SetShopState(ctx, f.shopA, true)
	require.NoError(t, err)
	assert.True(t, shop.State)
	_, err = f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "1")})
	require.NoError(t, err)
}

func TestAddToBasket_DoesNotReserveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "5")})
	require.NoError(t, err)
	_, err = f.svc.AddToBasket(ctx, f.other, []orders.BasketLine{line(phone, "5")})
	require.NoError(t, err, "two baskets may book the same stock")

	pi, _ := f.store.ProductInfo(phone)
	assert.True(t, pi.Quantity.Equal(d("5")))
}

func TestRemoveFromBasket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RemoveFromBasket(ctx, f.buyer, []string{"x"})
	requireKind(t, err, orders.KindNotFound)

	items, err := f.svc.AddToBasket(ctx, f.buyer, []orders.BasketLine{line(phone, "1"), line(charger, "2")})
	require.NoError(t, err)
	phoneID, chargerID := items[0].ID, items[1].ID

	// A mix of valid and foreign ids deletes nothing.
	_, err = f.svc.RemoveFromBasket(ctx, f.buyer, []string{phoneID, "foreign"})
	e := requireKind(t, err, orders.KindValidation)
	assert.Equal(t, map[string]any{"invalid_ids": []string{"foreign"}}, e.Details)

	n, err := f.svc.RemoveFromBasket(ctx, f.buyer, []string{phoneID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Removing again reports the id instead of silently succeeding.
	_, err = f.svc.RemoveFromBasket(ctx, f.buyer, []string{phoneID})
	e = requireKind(t, err, orders.KindValidation)
	assert.Equal(t, map[string]any{"invalid_ids": []string{phoneID}}, e.Details)

	b, err := f.svc.GetBasket(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, chargerID, b.Items[0].ID)

	// Another user's basket line is not ours to remove.
	others, err := f.svc.AddToBasket(ctx, f.other, []orders.BasketLine{line(cable, "1")})
	require.NoError(t, err)
	_, err = f.svc.RemoveFromBasket(ctx, f.buyer, []string{others[0].ID})
	requireKind(t, err, orders.KindValidation)
}

func TestGetBasket_Empty(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.GetBasket(context.Background(), f.buyer)
	require.NoError(t, err)
	assert.NotNil(t, b.Items)
	assert.Empty(t, b.Items)
	assert.Equal(t, "0.00", b.Total.StringFixed(2))
}
