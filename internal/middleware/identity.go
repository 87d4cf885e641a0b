package middleware

// identity.go resolves who is calling.  The service has no authentication:
// the caller may announce a user id in the X-User-ID header and it is only
// used to partition rate limits and for request logs.

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller's self-declared user id.
const HeaderUserID = "X-User-ID"

// UserIdentity copies X-User-ID into the context under "user_id".
func UserIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); uid != "" {
				c.Set("user_id", uid)
			}
			return next(c)
		}
	}
}

// currentUserID returns the id stored by UserIdentity, or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
