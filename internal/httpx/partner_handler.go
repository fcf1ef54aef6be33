package httpx

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"net/http"
)

type confirmReq struct {
	OrderID       string   `json:"order_id"`
	RejectedItems []string `json:"rejected_items"`
}

func (h *Handler) partnerConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	o, err := h.Svc.Confirm(ctx, actorFrom(ctx), req.OrderID, req.RejectedItems)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.ID, "status": o.Status})
}

type shopOrderView struct {
	orders.ShopOrder
	Total string `json:"total_amount"`
}

func (h *Handler) partnerOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := h.ctx(r)
	defer cancel()

	list, err := h.Svc.ShopOrders(ctx, actorFrom(ctx), orders.ShopOrderFilter{
		Status:   q.Get("status"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]shopOrderView, 0, len(list))
	for _, so := range list {
		out = append(out, shopOrderView{ShopOrder: so, Total: so.Total.StringFixed(2)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) shopState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	shop, err := h.Svc.ShopState(ctx, actorFrom(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (h *Handler) setShopState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State *bool `json:"state"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.State == nil {
		badRequest(w, "state is required")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	shop, err := h.Svc.SetShopState(ctx, actorFrom(ctx), *req.State)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}
