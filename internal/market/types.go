package market

import (
	"time"

	"github.com/coinviewapp/coinview-go/internal/httpclient"
)

// Coin is one market row from the coins/markets endpoint. The JSON tags
// follow the CoinGecko wire format.
type Coin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	ImageURL      string  `json:"image"`
	PriceUSD      float64 `json:"current_price"`
	MarketCapRank int     `json:"market_cap_rank"`
	Change24h     float64 `json:"price_change_percentage_24h"`
}

// Config holds the market client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://api.coingecko.com/api/v3.
	BaseURL string
	// Currency is the vs_currency for price quotes.
	Currency string
	// CacheTTL is how long market pages are served from cache.
	CacheTTL time.Duration
	// RateLimit is the maximum request rate in requests per second.
	RateLimit float64
	// Timeout bounds a single API request.
	Timeout time.Duration
	// HTTPClient overrides the default HTTP client when non-nil. Used by
	// tests to substitute a mock transport.
	HTTPClient *httpclient.Client
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.coingecko.com/api/v3",
		Currency:  "usd",
		CacheTTL:  60 * time.Second,
		RateLimit: 2.0,
		Timeout:   10 * time.Second,
	}
}
