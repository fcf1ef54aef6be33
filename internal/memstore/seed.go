package memstore

import (
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"os"
)

// Seed is the catalog and identity data a memory store starts with.
type Seed struct {
	Users        []orders.User        `json:"users"`
	Shops        []orders.Shop        `json:"shops"`
	ProductInfos []orders.ProductInfo `json:"product_infos"`
	Contacts     []orders.Contact     `json:"contacts"`
}

func LoadSeed(path string) (Seed, error) {
	var s Seed
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return s, nil
}

// Apply adds every seed record.
func (s *Store) Apply(seed Seed) {
	for _, u := range seed.Users {
		s.AddUser(u)
	}
	for _, sh := range seed.Shops {
		s.AddShop(sh)
	}
	for _, p := range seed.ProductInfos {
		s.AddProductInfo(p)
	}
	for _, c := range seed.Contacts {
		s.AddContact(c)
	}
}
