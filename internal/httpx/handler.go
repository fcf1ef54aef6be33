package httpx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

// Handler exposes the order service over JSON.
type Handler struct {
	Svc       *orders.Service
	JWTSecret string
	Timeout   time.Duration
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(h.JWTSecret))

		r.Route("/basket", func(r chi.Router) {
			r.Get("/", h.getBasket)
			r.Post("/add", h.addToBasket)
			r.Post("/remove", h.removeFromBasket)
		})
		r.Route("/order", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Post("/delete", h.deleteOrder)
			r.Post("/confirm", h.placeOrder)
			r.Get("/{id}/status", h.orderStatus)
			r.Get("/{id}/history", h.orderHistory)
		})
		r.Route("/partners", func(r chi.Router) {
			r.Post("/confirm", h.partnerConfirm)
			r.Get("/orders", h.partnerOrders)
			r.Get("/state", h.shopState)
			r.Post("/state", h.setShopState)
		})
		r.Post("/admin/orders/{id}/status", h.advanceStatus)
	})
}

func (h *Handler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}
