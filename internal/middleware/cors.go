package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// FunctionAllowHeaders are the request headers browsers may send to the
// payment functions
var FunctionAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// FunctionCORS stamps every payment function response, errors included,
// with a wildcard origin and the allowed headers, and answers preflight
// requests itself. Routes using it must accept OPTIONS.
func FunctionCORS() echo.MiddlewareFunc {
	allowHeaders := strings.Join(FunctionAllowHeaders, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)

			if c.Request().Method == http.MethodOptions {
				return c.String(http.StatusOK, "ok")
			}
			return next(c)
		}
	}
}
