package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ParamFunc extracts route path parameters from r.
type ParamFunc func(r *http.Request) map[string]string

// PathValueParams reads the named wildcards of an http.ServeMux pattern.
func PathValueParams(names ...string) ParamFunc {
	return func(r *http.Request) map[string]string {
		out := make(map[string]string, len(names))
		for _, name := range names {
			if v := r.PathValue(name); v != "" {
				out[name] = v
			}
		}
		return out
	}
}

// ChiParams reads every URL parameter resolved by a chi router.
func ChiParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	out := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			out[key] = rctx.URLParams.Values[i]
		}
	}
	return out
}
