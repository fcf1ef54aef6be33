package orders

import (
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer Role = "buyer"
	RoleShop  Role = "shop"
)

// Actor is the already-authenticated caller as reported by the identity service.
type Actor struct {
	UserID    string
	Email     string
	FirstName string
	Role      Role
	Staff     bool
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Shop struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	State  bool   `json:"state"` // accepting orders
}

// ProductInfo is a shop's priced and quantified listing of a product.
type ProductInfo struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product"`
	ShopID      string          `json:"shop_id"`
	ShopName    string          `json:"shop"`
	ShopState   bool            `json:"-"`
	Model       string          `json:"model,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	PriceRRC    decimal.Decimal `json:"price_rrc"`
	Unit        string          `json:"unit_of_measure"`
}

type Contact struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Zipcode   string `json:"zipcode,omitempty"`
	City      string `json:"city,omitempty"`
	Street    string `json:"street,omitempty"`
	Building  string `json:"building,omitempty"`
	Apartment string `json:"apartment,omitempty"`
}

func (c Contact) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{c.Zipcode, c.City, c.Street, c.Building, c.Apartment} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	Status            Status      `json:"status"`
	DeliveryAddressID *string     `json:"delivery_address_id"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	Items             []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductInfoID string          `json:"product_info_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	ShopConfirmed bool            `json:"shop_confirmed"`
	Status        ItemStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Product is the joined listing; stores fill it on reads.
	Product *ProductInfo `json:"product_info,omitempty"`
}

// Sum is quantity × price, zero when the listing is not loaded.
func (it OrderItem) Sum() decimal.Decimal {
	if it.Product == nil {
		return decimal.Zero
	}
	return it.Quantity.Mul(it.Product.Price)
}

func (it OrderItem) shopID() string {
	if it.Product == nil {
		return ""
	}
	return it.Product.ShopID
}

func (it OrderItem) label() string {
	if it.Product == nil {
		return it.ProductInfoID
	}
	if it.Product.Model != "" {
		return fmt.Sprintf("%s (%s)", it.Product.ProductName, it.Product.Model)
	}
	return it.Product.ProductName
}

// Total sums quantity × price over every non-rejected line.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Status == ItemRejected {
			continue
		}
		total = total.Add(it.Sum())
	}
	return total
}

// BasketLine is one requested (product_info, quantity) pair of a basket add.
type BasketLine struct {
	ProductInfoID string          `json:"product_info_id"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type Basket struct {
	Total decimal.Decimal `json:"total_amount"`
	Items []OrderItem     `json:"items"`
}

type StatusView struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"-"`
	Status  Status `json:"status"`
}

// ShopOrder is an order as seen by one supplier: only that shop's lines.
type ShopOrder struct {
	OrderID   string          `json:"order_id"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Buyer     User            `json:"user"`
	Contact   string          `json:"contact"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total_amount"`
}
