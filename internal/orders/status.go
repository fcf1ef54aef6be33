package orders

type Status string

const (
	StatusBasket    Status = "basket"
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusAssembled Status = "assembled"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

var validNext = map[Status]map[Status]bool{
	StatusBasket:    {StatusNew: true},
	StatusNew:       {StatusConfirmed: true},
	StatusConfirmed: {StatusAssembled: true, StatusCanceled: true},
	StatusAssembled: {StatusSent: true},
	StatusSent:      {StatusDelivered: true},
	StatusDelivered: {},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ParseStatus reports whether s names a known order status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validNext[st]
	return st, ok
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemConfirmed ItemStatus = "confirmed"
	ItemRejected  ItemStatus = "rejected"
)

// Settle computes the aggregate outcome of a confirmed order from its lines.
// It returns the terminal status and true once the order can leave "confirmed",
// or false while some non-rejected line still awaits its shop.
func Settle(items []OrderItem) (Status, bool) {
	remaining := 0
	for _, it := range items {
		if it.Status == ItemRejected {
			continue
		}
		remaining++
		if !it.ShopConfirmed {
			return StatusConfirmed, false
		}
	}
	if remaining == 0 {
		return StatusCanceled, true
	}
	return StatusAssembled, true
}
