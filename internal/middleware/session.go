package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/buddyfeed/internal/auth"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/anonto42/buddyfeed/internal/session"
	"github.com/labstack/echo/v4"
)

// IdentityKey is the echo context key holding the signed-in *models.Identity.
const IdentityKey = "identity"

// SessionState resolves the request's session. The token comes from the
// Authorization header, or from the access_token query parameter for WebSocket
// upgrades, which cannot carry custom headers from a browser.
func SessionState(c echo.Context, verifier auth.Verifier) session.State {
	token := bearerToken(c.Request())
	if token == "" {
		return session.Resolved(nil)
	}
	identity, err := verifier.VerifySession(c.Request().Context(), token)
	if err != nil {
		observability.GlobalLogger.DebugContext(c.Request().Context(), "session rejected", "error", err.Error())
		return session.Resolved(nil)
	}
	return session.Resolved(identity)
}

// RequireSession lets authorized requests through and stores their identity on the
// context. Signed-out browser requests are redirected to the login page; API
// clients get 401 with the redirect target.
func RequireSession(verifier auth.Verifier, guard session.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := SessionState(c, verifier)
			decision, redirect := guard.Evaluate(state)
			switch decision {
			case session.Authorized:
				c.Set(IdentityKey, state.User)
				return next(c)
			case session.Redirecting:
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusFound, redirect)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"message":  "Please sign in to continue",
					"redirect": redirect,
				})
			default:
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Session is still loading")
			}
		}
	}
}

// CurrentIdentity returns the identity stored by RequireSession, or nil.
func CurrentIdentity(c echo.Context) *models.Identity {
	identity, _ := c.Get(IdentityKey).(*models.Identity)
	return identity
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
