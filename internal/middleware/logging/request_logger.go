package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/logging"
)

type Option func(*options)

type options struct {
	quiet []string
}

// WithQuietPrefixes logs successful requests under these path prefixes at
// debug level. Health checks go here.
func WithQuietPrefixes(prefixes ...string) Option {
	return func(o *options) { o.quiet = append(o.quiet, prefixes...) }
}

// RequestLogger puts a request-scoped logger into the request context and
// logs one line per request once the response status is known.
func RequestLogger(base *slog.Logger, opts ...Option) echo.MiddlewareFunc {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = res.Header().Get(echo.HeaderXRequestID)
			}
			l := base.With(
				"method", req.Method,
				"path", c.Path(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", req.UserAgent(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				res.Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// render now so the logged status is the one sent
				c.Error(err)
			}

			// auth middleware may have added user_id
			l = logging.FromContext(c.Request().Context())
			attrs := []any{"status", res.Status, "duration_ms", time.Since(start).Milliseconds()}
			switch {
			case res.Status >= 500:
				l.Error("request_completed", append(attrs, "error", errStr(err))...)
			case res.Status >= 400:
				l.Warn("request_completed", attrs...)
			case o.isQuiet(req.URL.Path):
				l.Debug("request_completed", attrs...)
			default:
				l.Info("request_completed", append(attrs, "bytes", res.Size)...)
			}
			return nil
		}
	}
}

func (o options) isQuiet(path string) bool {
	for _, p := range o.quiet {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
