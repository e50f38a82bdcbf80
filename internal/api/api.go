// Package api provides the HTTP interface for artwork resolution and
// administration.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/artfetch/internal/artwork"
	"github.com/tphakala/artfetch/internal/conf"
	"github.com/tphakala/artfetch/internal/logging"
)

// shutdownTimeout is the grace period for in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

// Controller serves the resolution and admin endpoints.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	settings *conf.Settings
	resolver *artwork.Resolver
	logger   *slog.Logger
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings, resolver *artwork.Resolver) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:     e,
		settings: settings,
		resolver: resolver,
		logger:   logging.ForService("api"),
	}
	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/artwork/resolve", c.ResolveArtwork)
	c.Group.GET("/artwork/stats", c.GetStats)
	c.Group.GET("/artwork/health", c.GetHealth)
	c.Group.POST("/artwork/cache/clear", c.ClearCache)
	c.Group.DELETE("/artwork/cache", c.InvalidateEntry)
	c.Group.POST("/artwork/metrics/reset", c.ResetMetrics)
	c.Group.PATCH("/artwork/providers/:provider", c.UpdateProvider)
}

// Start runs the HTTP server until quitChan closes.
func (c *Controller) Start(quitChan <-chan struct{}) error {
	addr := fmt.Sprintf(":%s", c.settings.WebServer.Port)

	go func() {
		<-quitChan
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Echo.Shutdown(ctx); err != nil {
			c.logger.Error("API server shutdown error", "error", err)
		}
	}()

	c.logger.Info("API server starting", "address", addr)
	if err := c.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ResolveArtwork handles GET /api/v1/artwork/resolve.
func (c *Controller) ResolveArtwork(ctx echo.Context) error {
	itemID := ctx.QueryParam("item_id")
	itemName := ctx.QueryParam("item_name")
	if itemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "item_id is required")
	}

	result := c.resolver.Resolve(ctx.Request().Context(), itemID, itemName)
	return ctx.JSON(http.StatusOK, result)
}

// GetStats handles GET /api/v1/artwork/stats.
func (c *Controller) GetStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.resolver.Stats())
}

// GetHealth handles GET /api/v1/artwork/health. It reports 200 when at least
// one provider is healthy, 503 otherwise.
func (c *Controller) GetHealth(ctx echo.Context) error {
	health := c.resolver.HealthCheckAll(ctx.Request().Context())

	status := http.StatusServiceUnavailable
	for _, h := range health {
		if h.Healthy {
			status = http.StatusOK
			break
		}
	}
	return ctx.JSON(status, health)
}

// ClearCache handles POST /api/v1/artwork/cache/clear.
func (c *Controller) ClearCache(ctx echo.Context) error {
	c.resolver.ClearCache()
	return ctx.JSON(http.StatusOK, map[string]string{"status": "cache cleared"})
}

// InvalidateEntry handles DELETE /api/v1/artwork/cache.
func (c *Controller) InvalidateEntry(ctx echo.Context) error {
	itemID := ctx.QueryParam("item_id")
	itemName := ctx.QueryParam("item_name")
	if itemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "item_id is required")
	}

	if !c.resolver.InvalidateItem(itemID, itemName) {
		return echo.NewHTTPError(http.StatusNotFound, "no cached entry for item")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "entry invalidated"})
}

// ResetMetrics handles POST /api/v1/artwork/metrics/reset.
func (c *Controller) ResetMetrics(ctx echo.Context) error {
	c.resolver.ResetMetrics()
	return ctx.JSON(http.StatusOK, map[string]string{"status": "metrics reset"})
}

type updateProviderRequest struct {
	Enabled bool `json:"enabled"`
}

// UpdateProvider handles PATCH /api/v1/artwork/providers/:provider.
func (c *Controller) UpdateProvider(ctx echo.Context) error {
	name := ctx.Param("provider")

	var req updateProviderRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if !c.resolver.SetProviderEnabled(name, req.Enabled) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown provider %q", name))
	}

	c.logger.Info("Provider state updated", "provider", name, "enabled", req.Enabled)
	return ctx.JSON(http.StatusOK, map[string]any{
		"provider": name,
		"enabled":  req.Enabled,
	})
}
