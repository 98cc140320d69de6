// Package echoadapter enforces goAuthz requirements as echo middleware.
package echoadapter

import (
	"errors"
	"net/http"

	goAuthz "github.com/MrEthical07/goAuthz"
	"github.com/MrEthical07/goAuthz/middleware"
	"github.com/labstack/echo/v4"
)

// ContextKeyDecision is the echo.Context key holding the allowed Decision.
const ContextKeyDecision = "goauthz_decision"

const jsonKeyError = "error"

// Require returns echo middleware enforcing requirement. Route parameters are
// read from the echo context.
func Require(engine *goAuthz.Engine, requirement goAuthz.Requirement) (echo.MiddlewareFunc, error) {
	if engine == nil {
		return nil, goAuthz.ErrEngineNotReady
	}
	if err := engine.ValidateRequirement(requirement); err != nil {
		return nil, err
	}
	reqmt := requirement
	return guard(engine, &reqmt), nil
}

// MustRequire is Require that panics on an invalid requirement.
func MustRequire(engine *goAuthz.Engine, requirement goAuthz.Requirement) echo.MiddlewareFunc {
	mw, err := Require(engine, requirement)
	if err != nil {
		panic("goauthz echoadapter: " + err.Error())
	}
	return mw
}

// Guard enforces the engine's default requirement.
func Guard(engine *goAuthz.Engine) echo.MiddlewareFunc {
	return guard(engine, nil)
}

func guard(engine *goAuthz.Engine, requirement *goAuthz.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if engine == nil {
				return respondError(c, http.StatusInternalServerError, "internal error")
			}
			r := c.Request()

			body, err := middleware.ReadBody(r, engine.MaxBodyBytes())
			if err != nil {
				if errors.Is(err, middleware.ErrBodyTooLarge) {
					return respondError(c, http.StatusRequestEntityTooLarge, err.Error())
				}
				return respondError(c, http.StatusBadRequest, "request body unreadable")
			}

			req := goAuthz.Request{
				Method:        r.Method,
				Path:          r.URL.Path,
				Authorization: r.Header.Get(echo.HeaderAuthorization),
				Params:        params(c),
				Body:          body,
			}

			decision, err := engine.Authorize(r.Context(), req, requirement)
			if err != nil {
				c.Logger().Errorf("goauthz: %v", err)
				return respondError(c, http.StatusInternalServerError, "internal error")
			}
			if decision.NewToken != "" {
				c.Response().Header().Set(engine.RefreshHeader(), decision.NewToken)
			}
			if !decision.Allowed {
				return respondError(c, middleware.StatusFor(decision.Kind), decision.Message)
			}

			c.Set(ContextKeyDecision, decision)
			c.SetRequest(r.WithContext(goAuthz.WithDecision(r.Context(), decision)))
			return next(c)
		}
	}
}

// DecisionFrom returns the decision stored by the guard.
func DecisionFrom(c echo.Context) (goAuthz.Decision, bool) {
	d, ok := c.Get(ContextKeyDecision).(goAuthz.Decision)
	return d, ok
}

func params(c echo.Context) map[string]string {
	names := c.ParamNames()
	if len(names) == 0 {
		return nil
	}
	values := c.ParamValues()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}
