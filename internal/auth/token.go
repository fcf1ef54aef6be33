package auth

import (
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/golang-jwt/jwt/v5"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity the auth service already verified.
type Claims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Role      string `json:"role"`
	Staff     bool   `json:"is_staff,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for a. Used by tooling and tests.
func Issue(secret string, a orders.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Email:     a.Email,
		FirstName: a.FirstName,
		Role:      string(a.Role),
		Staff:     a.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// Parse validates raw and returns the actor it names.
func Parse(secret, raw string) (orders.Actor, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return orders.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return orders.Actor{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	role := orders.Role(c.Role)
	if role != orders.RoleShop {
		role = orders.RoleBuyer
	}
	return orders.Actor{
		UserID:    c.Subject,
		Email:     c.Email,
		FirstName: c.FirstName,
		Role:      role,
		Staff:     c.Staff,
	}, nil
}

// FromHeader extracts the token from an "Authorization: Bearer ..." value.
func FromHeader(h string) (string, bool) {
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
