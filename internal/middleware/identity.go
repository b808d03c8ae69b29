package middleware

import "github.com/labstack/echo/v4"

// subject returns the token subject stored by JWTAuth, or "anon" for
// unauthenticated requests such as public votes.
func subject(c echo.Context) string {
	if s, ok := c.Get(CtxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// clientIP is the caller address used for rate limit keys.
func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
