package httpx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"log"
	"net/http"
)

type actorKey struct{}

// Authenticate requires a valid bearer token and stores the caller in the
// request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := auth.FromHeader(r.Header.Get("Authorization"))
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing token"})
				return
			}
			a, err := auth.Parse(secret, raw)
			if err != nil {
				log.Printf("[auth] %s %s: %v", r.Method, r.URL.Path, err)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, a)))
		})
	}
}

func actorFrom(ctx context.Context) orders.Actor {
	a, _ := ctx.Value(actorKey{}).(orders.Actor)
	return a
}
