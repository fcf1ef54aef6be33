package orders

import (
	"fmt"
	"strings"
)

func greeting(name string) string {
	if name == "" {
		name = "valued customer"
	}
	return "Hello, " + name + ","
}

func orderConfirmationEmail(a Actor, o Order, c Contact) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nYour order #%s has been accepted and is being processed.\n\nItems:\n", greeting(a.FirstName), o.ID)
	for _, it := range o.Items {
		price := "?"
		if it.Product != nil {
			price = it.Product.Price.StringFixed(2)
		}
		fmt.Fprintf(&b, " - %s: %s × %s = %s\n", it.label(), it.Quantity, price, it.Sum().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nDelivery address: %s\n\nThank you for your order!\n", Total(o.Items).StringFixed(2), c)
	return Email{To: a.Email, Subject: fmt.Sprintf("Order #%s confirmation", o.ID), Message: b.String(), OrderID: o.ID}
}

func supplierRequestEmail(to string, shop Shop, buyer Actor, o Order, items []OrderItem, c Contact) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nOrder #%s from %s needs to be assembled.\n\nPlease prepare:\n", shop.Name, o.ID, buyer.Email)
	for _, it := range items {
		ext := ""
		if it.Product != nil {
			ext = it.Product.ExternalID
		}
		fmt.Fprintf(&b, " - %s: %s (article: %s)\n", it.label(), it.Quantity, ext)
	}
	fmt.Fprintf(&b, "\nDelivery address: %s\nPlease confirm or reject these items as soon as possible.\n", c)
	return Email{To: to, Subject: fmt.Sprintf("Assembly request for order #%s", o.ID), Message: b.String(), OrderID: o.ID}
}

func itemsRejectedEmail(buyer User, o Order, rejected []OrderItem) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nUnfortunately the following items of order #%s are unavailable and were removed:\n\n", greeting(buyer.FirstName), o.ID)
	for _, it := range rejected {
		fmt.Fprintf(&b, " - %s, quantity: %s\n", it.label(), it.Quantity)
	}
	b.WriteString("\nThe order will be processed with the remaining items.\n")
	return Email{To: buyer.Email, Subject: fmt.Sprintf("Order #%s was adjusted", o.ID), Message: b.String(), OrderID: o.ID}
}

func orderCanceledEmail(buyer User, o Order) Email {
	msg := fmt.Sprintf("%s\n\nYour order #%s was canceled because none of its items are available.\nYou can place a new order once the items are back in stock.\n", greeting(buyer.FirstName), o.ID)
	return Email{To: buyer.Email, Subject: fmt.Sprintf("Order #%s canceled", o.ID), Message: msg, OrderID: o.ID}
}

func orderAssembledEmail(buyer User, o Order) Email {
	msg := fmt.Sprintf("%s\n\nYour order #%s is fully assembled and ready to ship.\nWe will let you know once it is handed to the carrier.\n", greeting(buyer.FirstName), o.ID)
	return Email{To: buyer.Email, Subject: fmt.Sprintf("Order #%s is assembled", o.ID), Message: msg, OrderID: o.ID}
}
