package httpx

import (
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"net/http"
)

type basketView struct {
	Total string             `json:"total_amount"`
	Items []orders.OrderItem `json:"items"`
}

func (h *Handler) getBasket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	b, err := h.Svc.GetBasket(ctx, actorFrom(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, basketView{Total: b.Total.StringFixed(2), Items: b.Items})
}

func (h *Handler) addToBasket(w http.ResponseWriter, r *http.Request) {
	lines, err := decodeOneOrMany[orders.BasketLine](r)
	if err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	items, err := h.Svc.AddToBasket(ctx, actorFrom(ctx), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": len(items), "items": items})
}

type itemRef struct {
	ID string `json:"id"`
}

func (h *Handler) removeFromBasket(w http.ResponseWriter, r *http.Request) {
	refs, err := decodeOneOrMany[itemRef](r)
	if err != nil {
		badRequest(w, "invalid json")
		return
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == "" {
			badRequest(w, "every item needs an id")
			return
		}
		ids = append(ids, ref.ID)
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	n, err := h.Svc.RemoveFromBasket(ctx, actorFrom(ctx), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
