package webserver

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coinviewapp/coinview-go/internal/logofetch"
)

// logoWait bounds how long a logo request may block the HTTP handler.
const logoWait = 20 * time.Second

// GetLogo serves the downsampled thumbnail for ?url= as PNG. The handler
// issues a high-priority request to the coordinator and waits for its
// callback; a logo that cannot be fetched or decoded is a 404.
func (c *Controller) GetLogo(ctx echo.Context) error {
	rawURL := ctx.QueryParam("url")
	if rawURL == "" {
		return c.handleError(ctx, nil, "Missing url parameter", http.StatusBadRequest)
	}

	// Buffered so the delivery executor never blocks on a gone client.
	result := make(chan image.Image, 1)
	c.logos.Request(rawURL, logofetch.PriorityHigh, func(img image.Image) {
		result <- img
	})

	// Stop waiting without cancelling: other requests may be coalesced
	// onto the same URL, and a completed fetch still lands in the cache.
	var img image.Image
	select {
	case img = <-result:
	case <-ctx.Request().Context().Done():
		return ctx.Request().Context().Err()
	case <-time.After(logoWait):
		return c.handleError(ctx, nil, "Logo fetch timed out", http.StatusGatewayTimeout)
	}

	if img == nil {
		return c.handleError(ctx, nil, "Logo not available", http.StatusNotFound)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return c.handleError(ctx, err, "Failed to encode logo", http.StatusInternalServerError)
	}

	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// PrefetchRequest is the body of POST /logos/prefetch.
type PrefetchRequest struct {
	URLs []string `json:"urls"`
}

// PrefetchLogos queues the given URLs at low priority and returns
// immediately; results land in the cache, nothing is reported back.
func (c *Controller) PrefetchLogos(ctx echo.Context) error {
	var req PrefetchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.handleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if len(req.URLs) == 0 {
		return c.handleError(ctx, nil, "No urls given", http.StatusBadRequest)
	}

	c.logos.Prefetch(req.URLs)

	return ctx.JSON(http.StatusAccepted, map[string]int{"queued": len(req.URLs)})
}

// CancelPrefetching aborts every logo fetch still at low priority.
// In-flight requests that a client is actively waiting on are untouched.
func (c *Controller) CancelPrefetching(ctx echo.Context) error {
	c.logos.CancelPrefetching()
	return ctx.NoContent(http.StatusNoContent)
}
