// app/echoServer/middleware.go
package echoServer

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func RegisterMiddlewares(e *echo.Echo) {

	e.Use(middleware.Recover())

	// Webhook payloads and intent requests are small; anything bigger is
	// not ours.
	e.Use(middleware.BodyLimit("64K"))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(requestLog)
}

// requestLog writes one structured line per request, at error level for
// server-side failures so gateway callback trouble stands out.
func requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		attrs := []any{
			"method", c.Request().Method,
			"route", c.Path(),
			"status", res.Status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", res.Header().Get(echo.HeaderXRequestID),
			"remote_ip", c.RealIP(),
			"bytes_out", res.Size,
		}
		if res.Status >= 500 {
			slog.Error("request failed", attrs...)
		} else {
			slog.Info("request", attrs...)
		}
		return err
	}
}
