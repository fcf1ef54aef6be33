package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"io"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// writeError maps domain errors to 400/403/404. Anything else is logged and
// reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *orders.Error
	if errors.As(err, &de) {
		code := http.StatusBadRequest
		switch de.Kind {
		case orders.KindNotFound:
			code = http.StatusNotFound
		case orders.KindForbidden:
			code = http.StatusForbidden
		}
		writeJSON(w, code, errorBody{Error: de.Message, Details: de.Details})
		return
	}
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

const maxBody = 1 << 20

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
}

// decodeOneOrMany accepts either a JSON object or an array of objects.
func decodeOneOrMany[T any](r *http.Request) ([]T, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}
