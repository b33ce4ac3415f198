// Package market provides a client for a CoinGecko-compatible market-data
// API. It is the producer of the coin list (and its logo URLs) that the
// fetch coordinator consumes.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/coinviewapp/coinview-go/internal/errors"
	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/logging"
	"github.com/coinviewapp/coinview-go/internal/observability/metrics"
)

// Package-level logger specific to the market service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "market.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "market", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize market file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.DiscardLogger("market")
		closeLogger = func() error { return nil }
	}
}

// Client queries the market API with response caching and rate limiting.
type Client struct {
	config     Config
	httpClient *httpclient.Client
	cache      *gocache.Cache
	limiter    *rate.Limiter
	metrics    *metrics.MarketMetrics
}

// NewClient creates a market API client.
func NewClient(config Config, m *metrics.MarketMetrics) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Currency == "" {
		config.Currency = DefaultConfig().Currency
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultConfig().RateLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, errors.New(err).
			Component("market").
			Category(errors.CategoryConfiguration).
			Context("base_url", config.BaseURL).
			Build()
	}

	logger.Info("Market client initialized",
		"base_url", config.BaseURL,
		"currency", config.Currency,
		"cache_ttl", config.CacheTTL,
		"rate_limit_rps", config.RateLimit)

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		cache:      gocache.New(config.CacheTTL, 5*time.Minute),
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		metrics:    m,
	}, nil
}

// TopMarkets returns one page of coins ordered by market cap descending.
// Responses are cached for the configured TTL.
func (c *Client) TopMarkets(ctx context.Context, page, perPage int) ([]Coin, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 250 {
		perPage = 100
	}

	cacheKey := fmt.Sprintf("markets:%s:%d:%d", c.config.Currency, page, perPage)
	if cached, found := c.cache.Get(cacheKey); found {
		if coins, ok := cached.([]Coin); ok {
			c.metrics.IncrementCacheHits()
			logger.Debug("Market page served from cache", "page", page, "per_page", perPage)
			return coins, nil
		}
	}
	c.metrics.IncrementCacheMisses()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.New(err).
			Component("market").
			Category(errors.CategoryCancellation).
			Context("operation", "rate_limit_wait").
			Build()
	}

	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=%s&order=market_cap_desc&per_page=%s&page=%s",
		c.config.BaseURL,
		url.QueryEscape(c.config.Currency),
		strconv.Itoa(perPage),
		strconv.Itoa(page))

	start := time.Now()
	c.metrics.IncrementAPICalls()
	body, err := c.httpClient.GetBytes(ctx, endpoint, "")
	c.metrics.ObserveAPIDuration(time.Since(start).Seconds())
	if err != nil {
		c.metrics.IncrementAPIErrors()
		logger.Error("Market API request failed", "page", page, "error", err)
		return nil, errors.New(err).
			Component("market").
			Category(errors.CategoryMarketData).
			Context("page", page).
			Build()
	}

	var coins []Coin
	if err := json.Unmarshal(body, &coins); err != nil {
		c.metrics.IncrementAPIErrors()
		logger.Error("Failed to decode market response", "page", page, "error", err)
		return nil, errors.New(err).
			Component("market").
			Category(errors.CategoryMarketData).
			Context("operation", "decode_markets").
			Build()
	}

	c.cache.SetDefault(cacheKey, coins)
	logger.Debug("Fetched market page", "page", page, "coins", len(coins))
	return coins, nil
}

// LogoURLs extracts the non-empty logo URLs from a coin list, preserving
// market-cap order.
func LogoURLs(coins []Coin) []string {
	urls := make([]string, 0, len(coins))
	for i := range coins {
		if coins[i].ImageURL != "" {
			urls = append(urls, coins[i].ImageURL)
		}
	}
	return urls
}

// Close releases the client's resources.
func (c *Client) Close() {
	c.httpClient.Close()
}
