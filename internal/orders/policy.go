package orders

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denial into a forbidden error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return Forbidden(d.Reason)
}

func CanUseBasket(a Actor) Decision {
	if a.UserID == "" {
		return deny("authentication required")
	}
	return allow()
}

// CanManageOrder allows the owner of an order only.
func CanManageOrder(a Actor, o Order) Decision {
	if a.UserID == "" || a.UserID != o.UserID {
		return deny("order belongs to another user")
	}
	return allow()
}

func CanPartner(a Actor) Decision {
	if a.UserID == "" {
		return deny("authentication required")
	}
	if a.Role != RoleShop {
		return deny("only shop users may use partner operations")
	}
	return allow()
}

// CanViewHistory allows the owner, or a shop whose lines are in the order.
func CanViewHistory(a Actor, o Order, shopHasLines bool) Decision {
	if a.UserID != "" && a.UserID == o.UserID {
		return allow()
	}
	if a.Role == RoleShop && shopHasLines {
		return allow()
	}
	return deny("no access to this order history")
}

func CanAdvance(a Actor) Decision {
	if !a.Staff {
		return deny("staff only")
	}
	return allow()
}
