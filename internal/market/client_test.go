package market_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/market"
)

const marketsResponse = `[
  {
    "id": "bitcoin",
    "symbol": "btc",
    "name": "Bitcoin",
    "image": "https://assets.example.com/coins/bitcoin.png",
    "current_price": 64250.12,
    "market_cap_rank": 1,
    "price_change_percentage_24h": -1.23
  },
  {
    "id": "ethereum",
    "symbol": "eth",
    "name": "Ethereum",
    "image": "https://assets.example.com/coins/ethereum.png",
    "current_price": 3050.55,
    "market_cap_rank": 2,
    "price_change_percentage_24h": 2.05
  }
]`

// newMockedClient returns a market client whose HTTP layer is served by the
// given mock transport.
func newMockedClient(t *testing.T, mt *httpmock.MockTransport) *market.Client {
	t.Helper()
	client, err := market.NewClient(market.Config{
		BaseURL:    "https://api.example.com/v3",
		CacheTTL:   time.Minute,
		RateLimit:  1000, // effectively unlimited in tests
		HTTPClient: httpclient.New(&httpclient.Config{Transport: mt}),
	}, nil)
	require.NoError(t, err)
	return client
}

func TestTopMarkets(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet,
		`=~^https://api\.example\.com/v3/coins/markets`,
		httpmock.NewStringResponder(http.StatusOK, marketsResponse))

	client := newMockedClient(t, mt)
	defer client.Close()

	coins, err := client.TopMarkets(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, coins, 2)

	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "Bitcoin", coins[0].Name)
	assert.Equal(t, "https://assets.example.com/coins/bitcoin.png", coins[0].ImageURL)
	assert.InDelta(t, 64250.12, coins[0].PriceUSD, 0.001)
	assert.Equal(t, 1, coins[0].MarketCapRank)
	assert.InDelta(t, 2.05, coins[1].Change24h, 0.001)
}

func TestTopMarketsCachesPage(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet,
		`=~^https://api\.example\.com/v3/coins/markets`,
		httpmock.NewStringResponder(http.StatusOK, marketsResponse))

	client := newMockedClient(t, mt)
	defer client.Close()

	_, err := client.TopMarkets(context.Background(), 1, 100)
	require.NoError(t, err)
	_, err = client.TopMarkets(context.Background(), 1, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, mt.GetTotalCallCount(), "second call should be served from cache")
}

func TestTopMarketsAPIError(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet,
		`=~^https://api\.example\.com/v3/coins/markets`,
		httpmock.NewStringResponder(http.StatusTooManyRequests, "rate limited"))

	client := newMockedClient(t, mt)
	defer client.Close()

	_, err := client.TopMarkets(context.Background(), 1, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTopMarketsMalformedBody(t *testing.T) {
	t.Parallel()

	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet,
		`=~^https://api\.example\.com/v3/coins/markets`,
		httpmock.NewStringResponder(http.StatusOK, `{"not":"a list"}`))

	client := newMockedClient(t, mt)
	defer client.Close()

	_, err := client.TopMarkets(context.Background(), 1, 100)
	require.Error(t, err)
}

func TestLogoURLs(t *testing.T) {
	t.Parallel()

	coins := []market.Coin{
		{ID: "bitcoin", ImageURL: "https://assets.example.com/coins/bitcoin.png"},
		{ID: "mystery"},
		{ID: "ethereum", ImageURL: "https://assets.example.com/coins/ethereum.png"},
	}
	urls := market.LogoURLs(coins)
	assert.Equal(t, []string{
		"https://assets.example.com/coins/bitcoin.png",
		"https://assets.example.com/coins/ethereum.png",
	}, urls)
}
