package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// changeSink is what write handlers need after a successful mutation: drop
// the table's cached result sets and push the fresh dataset to WebSocket
// clients. Wired to the DataService and Refresher pair.
type changeSink interface {
	Invalidate(table string)
	NotifyChanged(ctx context.Context, table string)
}

// uintParam parses a numeric chi route parameter. Returns 0 on garbage; the
// caller decides whether 0 is acceptable.
func uintParam(r *http.Request, name string) uint {
	raw := chi.URLParam(r, name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryUint parses an unsigned integer query parameter, 0 when absent.
func queryUint(r *http.Request, name string) uint {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
