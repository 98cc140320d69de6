package middleware

import (
	"net/http"

	goAuthz "github.com/MrEthical07/goAuthz"
)

// Authenticate verifies the bearer token and confirms the identity still
// exists, without role or ownership checks.
func Authenticate(engine *goAuthz.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}

			decision, err := engine.IdentityFromHeader(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}
			if decision.NewToken != "" {
				w.Header().Set(engine.RefreshHeader(), decision.NewToken)
			}
			if !decision.Allowed {
				writeError(w, StatusFor(decision.Kind), decision.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(goAuthz.WithDecision(r.Context(), decision)))
		})
	}
}
