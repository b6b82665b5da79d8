package middleware

import (
	"log/slog"
	"time"

	"app/internal/logging"

	"github.com/labstack/echo/v4"
)

// リクエスト1件ごとのアクセスログ。
// loggerをcontextへ入れて、usecase側のerrStorage等が同じ出口で書けるようにする。
func RequestLogger(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			ctx := logging.IntoContext(req.Context(), l)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", c.RealIP(),
			)

			return err
		}
	}
}
