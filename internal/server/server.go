package server

import (
	"log/slog"

	"app/internal/config"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Echoを組み立てて返す（起動はしない。テストからも使う）
func New(cfg config.Config, logger *slog.Logger, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	RegisterRoutes(e, cfg, h)

	return e
}

func Start(e *echo.Echo, port string) error {
	return e.Start(":" + port)
}
