package echoapi

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
)

// gateMiddleware guards a protected route group. The auth state is
// resolved once per request and stashed in the context for handlers.
func (s *server) gateMiddleware(route auth.Route) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st := s.authState(ctx)
			ctx.Set(contextAuthStateKey, st)

			switch d := s.gate.Check(st, route); d.Action {
			case auth.ActionLoading:
				ctx.Response().Header().Set("Retry-After", "1")
				return ctx.JSON(http.StatusAccepted, echo.Map{"status": st.Status.String()})
			case auth.ActionRedirect:
				loc := d.Location
				if d.PreserveNext {
					loc += "?next=" + url.QueryEscape(ctx.Request().RequestURI)
				}
				return ctx.Redirect(http.StatusFound, loc)
			}
			return next(ctx)
		}
	}
}

func roles(rs ...profile.Role) []profile.Role { return rs }
