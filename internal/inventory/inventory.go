// Package inventory holds the stock rules shared by basket adds and supplier
// confirmation. Basket adds only check availability; the authoritative
// decrement happens once, when a shop confirms its lines.
package inventory

import (
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
)

// UnitPieces is the unit of measure for goods sold by the piece.
const UnitPieces = "pcs"

// Quantities are stored as NUMERIC(10,2).
const (
	MaxScale         = 2
	MaxIntegerDigits = 8
)

var (
	ErrNonPositive = errors.New("quantity must be greater than zero")
	ErrFractional  = errors.New("quantity must be a whole number for piece goods")
	ErrTooPrecise  = fmt.Errorf("quantity must have at most %d decimal places", MaxScale)
	ErrTooLarge    = fmt.Errorf("quantity must have at most %d integer digits", MaxIntegerDigits)
)

var quantityCeiling = decimal.New(1, MaxIntegerDigits)

// Line is a requested quantity against the stock currently on record.
type Line struct {
	ItemID        string
	ProductInfoID string
	Product       string
	Model         string
	Requested     decimal.Decimal
	Available     decimal.Decimal
}

type Shortfall struct {
	ItemID        string          `json:"item_id,omitempty"`
	ProductInfoID string          `json:"product_info_id"`
	Product       string          `json:"product"`
	Model         string          `json:"model,omitempty"`
	Requested     decimal.Decimal `json:"ordered"`
	Available     decimal.Decimal `json:"available"`
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s: requested %s, available %s", s.Product, s.Requested, s.Available)
}

// CheckQuantity applies the unit independent rules: the quantity must be
// positive and fit the stored column without rounding.
func CheckQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return ErrNonPositive
	}
	if !qty.Truncate(MaxScale).Equal(qty) {
		return ErrTooPrecise
	}
	if qty.GreaterThanOrEqual(quantityCeiling) {
		return ErrTooLarge
	}
	return nil
}

// ValidateQuantity checks a requested quantity against the listing's unit.
func ValidateQuantity(unit string, qty decimal.Decimal) error {
	if err := CheckQuantity(qty); err != nil {
		return err
	}
	if unit == UnitPieces && !qty.IsInteger() {
		return ErrFractional
	}
	return nil
}

// Guard reports every line whose request exceeds the available stock.
// ok is true only when no line falls short.
func Guard(lines []Line) (ok bool, shortfalls []Shortfall) {
	for _, l := range lines {
		if l.Requested.GreaterThan(l.Available) {
			shortfalls = append(shortfalls, Shortfall{
				ItemID:        l.ItemID,
				ProductInfoID: l.ProductInfoID,
				Product:       l.Product,
				Model:         l.Model,
				Requested:     l.Requested,
				Available:     l.Available,
			})
		}
	}
	return len(shortfalls) == 0, shortfalls
}

// Decrement returns available - qty, or an error if that would go negative.
func Decrement(available, qty decimal.Decimal) (decimal.Decimal, error) {
	if qty.GreaterThan(available) {
		return available, fmt.Errorf("decrement %s from %s: insufficient stock", qty, available)
	}
	return available.Sub(qty), nil
}
