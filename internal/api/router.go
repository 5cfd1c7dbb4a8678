// Package api assembles the Echo engine and the Huma OpenAPI surface for the
// proplens server.
package api

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dohyunlee/proplens/internal/api/handlers"
	"github.com/dohyunlee/proplens/internal/api/middleware"
)

// New builds the Echo engine with the standard middleware chain, operational
// endpoints, and a Huma API for the /api/v1 surface. Handlers are registered
// by the caller against the returned huma.API.
func New(log *slog.Logger, version string, health *handlers.HealthHandler) (*echo.Echo, huma.API) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := huma.DefaultConfig("PropLens API", version)
	cfg.Info.Description = "Korean property-listing search, evaluation, and reporting."
	api := humaecho.New(e, cfg)

	return e, api
}
