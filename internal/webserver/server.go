// Package webserver exposes the market data client and the logo fetch
// coordinator over HTTP.
package webserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coinviewapp/coinview-go/internal/conf"
	"github.com/coinviewapp/coinview-go/internal/logging"
	"github.com/coinviewapp/coinview-go/internal/logofetch"
	"github.com/coinviewapp/coinview-go/internal/market"
	"github.com/coinviewapp/coinview-go/internal/observability"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logger, closeLogger, err = logging.NewFileLogger("logs/webserver.log", "webserver", serviceLevelVar)
	if err != nil || logger == nil {
		logger = logging.DiscardLogger("webserver")
		closeLogger = func() error { return nil }
	}
}

// Controller wires the HTTP routes to the market client and the logo
// fetcher.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	fetcher *market.Client
	logos   *logofetch.Fetcher
	metrics *observability.Metrics
	log     *slog.Logger

	server *http.Server
}

// New creates the controller and registers all routes. metrics may be nil.
func New(settings *conf.Settings, marketClient *market.Client, logos *logofetch.Fetcher, m *observability.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:     e,
		Settings: settings,
		fetcher:  marketClient,
		logos:    logos,
		metrics:  m,
		log:      logger,
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/markets", c.GetMarkets)
	c.Group.GET("/logo", c.GetLogo)
	c.Group.POST("/logos/prefetch", c.PrefetchLogos)
	c.Group.POST("/logos/prefetch/cancel", c.CancelPrefetching)

	c.Echo.GET("/healthz", c.Healthz)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Start runs the HTTP server until the listener fails or Shutdown is
// called. Blocks the caller.
func (c *Controller) Start(listen string) error {
	c.server = &http.Server{
		Addr:         listen,
		Handler:      c.Echo,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	c.log.Info("Starting web server", "listen", listen)
	err := c.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (c *Controller) Shutdown(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	c.log.Info("Shutting down web server")
	return c.server.Shutdown(ctx)
}

// ErrorResponse is the JSON error body returned by all handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// handleError logs err and replies with a JSON error body.
func (c *Controller) handleError(ctx echo.Context, err error, message string, code int) error {
	c.log.Error("Request failed",
		"path", ctx.Request().URL.Path,
		"error", err,
		"message", message,
		"code", code)

	resp := &ErrorResponse{Message: message, Code: code}
	if err != nil {
		resp.Error = err.Error()
	}
	return ctx.JSON(code, resp)
}

// Healthz reports liveness.
func (c *Controller) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
