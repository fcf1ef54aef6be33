package httpx

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
)

type orderRef struct {
	OrderID string `json:"order_id"`
	Contact string `json:"contact,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	o, err := h.Svc.CreateFromBasket(ctx, actorFrom(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	list, err := h.Svc.ListOrders(ctx, actorFrom(ctx), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRef
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	if err := h.Svc.DeleteOrder(ctx, actorFrom(ctx), req.OrderID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": req.OrderID})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRef
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	o, err := h.Svc.PlaceOrder(ctx, actorFrom(ctx), req.OrderID, req.Contact)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	v, err := h.Svc.OrderStatus(ctx, actorFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	list, err := h.Svc.History(ctx, actorFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	o, err := h.Svc.AdvanceStatus(ctx, actorFrom(ctx), chi.URLParam(r, "id"), orders.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
