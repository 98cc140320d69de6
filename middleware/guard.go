package middleware

import (
	"errors"
	"net/http"

	goAuthz "github.com/MrEthical07/goAuthz"
)

// Option configures a guard.
type Option func(*options)

type options struct {
	params ParamFunc
}

// WithParams sets how path parameters are read. Without it the guard passes
// no parameters, so own_account checks on read-style routes never match.
func WithParams(fn ParamFunc) Option {
	return func(o *options) {
		o.params = fn
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Require returns middleware enforcing requirement. The requirement is
// validated against the engine immediately so a misdeclared route fails at
// startup.
func Require(engine *goAuthz.Engine, requirement goAuthz.Requirement, opts ...Option) (func(http.Handler) http.Handler, error) {
	if engine == nil {
		return nil, goAuthz.ErrEngineNotReady
	}
	if err := engine.ValidateRequirement(requirement); err != nil {
		return nil, err
	}
	reqmt := requirement
	return guard(engine, &reqmt, applyOptions(opts)), nil
}

// MustRequire is Require that panics on an invalid requirement.
func MustRequire(engine *goAuthz.Engine, requirement goAuthz.Requirement, opts ...Option) func(http.Handler) http.Handler {
	mw, err := Require(engine, requirement, opts...)
	if err != nil {
		panic("goauthz middleware: " + err.Error())
	}
	return mw
}

// Guard enforces the engine's default requirement.
func Guard(engine *goAuthz.Engine, opts ...Option) func(http.Handler) http.Handler {
	return guard(engine, nil, applyOptions(opts))
}

func guard(engine *goAuthz.Engine, requirement *goAuthz.Requirement, o options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}

			body, err := ReadBody(r, engine.MaxBodyBytes())
			if err != nil {
				if errors.Is(err, ErrBodyTooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
					return
				}
				writeError(w, http.StatusBadRequest, msgBodyUnreadable)
				return
			}

			req := goAuthz.Request{
				Method:        r.Method,
				Path:          r.URL.Path,
				Authorization: r.Header.Get("Authorization"),
				Body:          body,
			}
			if o.params != nil {
				req.Params = o.params(r)
			}

			decision, err := engine.Authorize(r.Context(), req, requirement)
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
