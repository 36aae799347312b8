// Package security holds the middleware every request passes before
// routing: panic recovery, request ids, CORS, secure headers, compression,
// body size and per-IP rate limits.
package security

import (
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	CodeTooManyRequests = "TooManyRequests"
	MsgTooManyRequests  = "You have sent too many requests in a given amount of time. Please try again later."
)

type Options struct {
	// AllowAllOrigins is set in development.
	AllowAllOrigins bool
	Origins         []string
	// RequestsPerMinute per client IP; 0 disables the limiter.
	RequestsPerMinute int
	BodyLimit         string
	GzipMinLength     int
}

// Pre runs before the router so request ids exist for the request logger.
func Pre() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.RequestID(),
	}
}

func Common(o Options) []echo.MiddlewareFunc {
	if o.BodyLimit == "" {
		o.BodyLimit = "1M"
	}
	if o.GzipMinLength == 0 {
		o.GzipMinLength = 1024
	}

	mws := []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.CORSWithConfig(ecM.CORSConfig{
			AllowOriginFunc:  originFunc(o),
			AllowCredentials: true,
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		}),
		ecM.SecureWithConfig(ecM.SecureConfig{
			XSSProtection:         "0",
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "SAMEORIGIN",
			HSTSMaxAge:            15552000,
			ContentSecurityPolicy: "default-src 'self'",
			ReferrerPolicy:        "no-referrer",
		}),
		ecM.GzipWithConfig(ecM.GzipConfig{MinLength: o.GzipMinLength}),
		ecM.BodyLimit(o.BodyLimit),
	}
	if o.RequestsPerMinute > 0 {
		mws = append(mws, RateLimiter(o.RequestsPerMinute, time.Minute))
	}
	return mws
}

func originFunc(o Options) func(string) (bool, error) {
	return func(origin string) (bool, error) {
		if o.AllowAllOrigins || origin == "" {
			return true, nil
		}
		return slices.Contains(o.Origins, origin), nil
	}
}

// RateLimiter allows n requests per window per client IP with a burst of n.
func RateLimiter(n int, window time.Duration) echo.MiddlewareFunc {
	store := ecM.NewRateLimiterMemoryStoreWithConfig(ecM.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(n) / window.Seconds()),
		Burst:     n,
		ExpiresIn: 3 * window,
	})
	return ecM.RateLimiterWithConfig(ecM.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"code": "AuthorizationError", "message": "Cannot identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"code": CodeTooManyRequests, "message": MsgTooManyRequests})
		},
	})
}
