package orders

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusBasket, StatusNew))
	assert.True(t, CanTransition(StatusNew, StatusConfirmed))
	assert.True(t, CanTransition(StatusConfirmed, StatusAssembled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCanceled))
	assert.True(t, CanTransition(StatusAssembled, StatusSent))
	assert.True(t, CanTransition(StatusSent, StatusDelivered))

	assert.False(t, CanTransition(StatusBasket, StatusConfirmed))
	assert.False(t, CanTransition(StatusNew, StatusAssembled))
	assert.False(t, CanTransition(StatusCanceled, StatusSent))
	assert.False(t, CanTransition(StatusDelivered, StatusSent))
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("assembled")
	assert.True(t, ok)
	assert.Equal(t, StatusAssembled, st)

	_, ok = ParseStatus("lost")
	assert.False(t, ok)
}

func TestSettle(t *testing.T) {
	pending := OrderItem{Status: ItemPending}
	confirmed := OrderItem{Status: ItemConfirmed, ShopConfirmed: true}
	rejected := OrderItem{Status: ItemRejected}

	tests := []struct {
		name    string
		items   []OrderItem
		want    Status
		settled bool
	}{
		{"awaiting a shop", []OrderItem{confirmed, pending}, StatusConfirmed, false},
		{"all confirmed", []OrderItem{confirmed, confirmed}, StatusAssembled, true},
		{"confirmed and rejected", []OrderItem{confirmed, rejected}, StatusAssembled, true},
		{"all rejected", []OrderItem{rejected, rejected}, StatusCanceled, true},
		{"rejected and pending", []OrderItem{rejected, pending}, StatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, settled := Settle(tt.items)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.settled, settled)
		})
	}
}

func TestPolicy(t *testing.T) {
	owner := Actor{UserID: "u1", Role: RoleBuyer}
	other := Actor{UserID: "u2", Role: RoleBuyer}
	shop := Actor{UserID: "s1", Role: RoleShop}
	o := Order{ID: "o1", UserID: "u1"}

	assert.True(t, CanManageOrder(owner, o).Allowed)
	assert.False(t, CanManageOrder(other, o).Allowed)

	assert.True(t, CanViewHistory(owner, o, false).Allowed)
	assert.True(t, CanViewHistory(shop, o, true).Allowed)
	assert.False(t, CanViewHistory(shop, o, false).Allowed)
	assert.False(t, CanViewHistory(other, o, true).Allowed)

	assert.NoError(t, CanPartner(shop).Err())
	assert.Equal(t, KindForbidden, KindOf(CanPartner(owner).Err()))
	assert.Equal(t, KindForbidden, KindOf(CanUseBasket(Actor{}).Err()))
	assert.Equal(t, KindForbidden, KindOf(CanAdvance(owner).Err()))
	assert.NoError(t, CanAdvance(Actor{UserID: "adm", Staff: true}).Err())
}
