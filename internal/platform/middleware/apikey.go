package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the client credential.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns middleware that checks the request against a static
// list of accepted keys. When the list is empty the middleware is a no-op,
// which keeps local development credential-free. Health checks are always
// exempt so probes keep working when keys rotate.
func APIKeyAuth(keys []string) echo.MiddlewareFunc {
	accepted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted[k] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(accepted) == 0 || c.Request().URL.Path == "/health" {
				return next(c)
			}

			presented := c.Request().Header.Get(APIKeyHeader)
			if presented == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
			}
			for k := range accepted {
				if subtle.ConstantTimeCompare([]byte(k), []byte(presented)) == 1 {
					c.Set("api_key", presented)
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}
	}
}
