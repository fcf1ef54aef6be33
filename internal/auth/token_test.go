package auth

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	a := orders.Actor{UserID: "u-1", Email: "shop@example.com", FirstName: "Ann", Role: orders.RoleShop, Staff: true}
	tok, err := Issue("s3cret", a, time.Hour)
	require.NoError(t, err)

	got, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestParseRejects(t *testing.T) {
	good, err := Issue("s3cret", orders.Actor{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	expired, err := Issue("s3cret", orders.Actor{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	noSub, err := Issue("s3cret", orders.Actor{}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": good,
		"expired":      expired,
		"no subject":   noSub,
		"alg none":     none,
		"garbage":      "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			secret := "s3cret"
			if name == "wrong secret" {
				secret = "other"
			}
			_, err := Parse(secret, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestUnknownRoleFallsBackToBuyer(t *testing.T) {
	tok, err := Issue("k", orders.Actor{UserID: "u", Role: "admin"}, time.Hour)
	require.NoError(t, err)
	a, err := Parse("k", tok)
	require.NoError(t, err)
	assert.Equal(t, orders.RoleBuyer, a.Role)
}

func TestFromHeader(t *testing.T) {
	tok, ok := FromHeader("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = FromHeader("Token abc")
	assert.False(t, ok)
	_, ok = FromHeader("")
	assert.False(t, ok)
}
