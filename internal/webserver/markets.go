package webserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/coinviewapp/coinview-go/internal/market"
)

const (
	defaultPage    = 1
	defaultPerPage = 100
	maxPerPage     = 250
)

// GetMarkets returns one page of coins ordered by market cap and kicks
// off a low-priority prefetch of the page's logos, so thumbnails are
// usually warm by the time a client asks for them.
func (c *Controller) GetMarkets(ctx echo.Context) error {
	page := queryInt(ctx, "page", defaultPage)
	perPage := queryInt(ctx, "per_page", defaultPerPage)
	if page < 1 {
		page = defaultPage
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	coins, err := c.fetcher.TopMarkets(ctx.Request().Context(), page, perPage)
	if err != nil {
		return c.handleError(ctx, err, "Failed to fetch market data", http.StatusBadGateway)
	}

	c.logos.Prefetch(market.LogoURLs(coins))

	return ctx.JSON(http.StatusOK, coins)
}

func queryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
