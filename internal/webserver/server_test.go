package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinviewapp/coinview-go/internal/conf"
	"github.com/coinviewapp/coinview-go/internal/errors"
	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/logofetch"
	"github.com/coinviewapp/coinview-go/internal/market"
)

const testLogoURL = "https://assets.example.com/coins/bitcoin.png"

// stubTransport is a logofetch.Transport serving a fixed payload. A
// non-nil gate blocks fetches until it is closed.
type stubTransport struct {
	mu      sync.Mutex
	calls   map[string]int
	payload []byte
	fail    bool
	gate    chan struct{}
}

func (s *stubTransport) FetchBytes(ctx context.Context, url string, _ *logofetch.PriorityHint) ([]byte, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[url]++
	s.mu.Unlock()
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail {
		return nil, errors.NewStd("stub transport failure")
	}
	return s.payload, nil
}

func (s *stubTransport) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// stubCache is an in-memory logofetch.Cache.
type stubCache struct {
	mu sync.Mutex
	m  map[string]image.Image
}

func (c *stubCache) Get(url string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.m[url]
	return img, ok
}

func (c *stubCache) Put(url string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]image.Image)
	}
	c.m[url] = img
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestController(t *testing.T, transport *stubTransport) *Controller {
	t.Helper()

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet,
		`=~^https://api\.example\.com/api/v3/coins/markets`,
		httpmock.NewStringResponder(http.StatusOK, `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"`+testLogoURL+`","current_price":60000,"market_cap_rank":1},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://assets.example.com/coins/ethereum.png","current_price":3000,"market_cap_rank":2}
		]`))

	hc := httpclient.New(&httpclient.Config{Transport: mock})
	t.Cleanup(hc.Close)

	marketClient, err := market.NewClient(market.Config{
		BaseURL:    "https://api.example.com/api/v3",
		HTTPClient: hc,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(marketClient.Close)

	logos := logofetch.New(logofetch.Config{}, transport, &stubCache{}, logofetch.CallerExecutor{}, nil)
	t.Cleanup(logos.Shutdown)

	settings := &conf.Settings{}
	return New(settings, marketClient, logos, nil)
}

func doRequest(c *Controller, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, echoMIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

const (
	echoHeaderContentType   = "Content-Type"
	echoMIMEApplicationJSON = "application/json"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{payload: testPNG(t)})
	rec := doRequest(c, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestGetMarketsReturnsCoinsAndPrefetchesLogos(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{payload: testPNG(t)}
	c := newTestController(t, transport)

	rec := doRequest(c, http.MethodGet, "/api/v1/markets?page=1&per_page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var coins []market.Coin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coins))
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, testLogoURL, coins[0].ImageURL)

	// The page's logos are prefetched in the background.
	require.Eventually(t, func() bool {
		return transport.callCount(testLogoURL) == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestGetLogoServesPNG(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{payload: testPNG(t)})

	rec := doRequest(c, http.MethodGet, "/api/v1/logo?url="+testLogoURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echoHeaderContentType))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestGetLogoMissingParam(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{payload: testPNG(t)})
	rec := doRequest(c, http.MethodGet, "/api/v1/logo", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLogoClientDisconnectLeavesSharedFetch(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{payload: testPNG(t), gate: make(chan struct{})}
	c := newTestController(t, transport)

	// First client starts the fetch, then goes away mid-flight.
	ctxA, cancelA := context.WithCancel(context.Background())
	reqA := httptest.NewRequest(http.MethodGet, "/api/v1/logo?url="+testLogoURL, http.NoBody).WithContext(ctxA)
	recA := httptest.NewRecorder()
	doneA := make(chan struct{})
	go func() {
		c.Echo.ServeHTTP(recA, reqA)
		close(doneA)
	}()

	require.Eventually(t, func() bool {
		return transport.callCount(testLogoURL) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// Second client coalesces onto the same in-flight fetch.
	reqB := httptest.NewRequest(http.MethodGet, "/api/v1/logo?url="+testLogoURL, http.NoBody)
	recB := httptest.NewRecorder()
	doneB := make(chan struct{})
	go func() {
		c.Echo.ServeHTTP(recB, reqB)
		close(doneB)
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case <-doneA:
	case <-time.After(5 * time.Second):
		t.Fatal("disconnected client's handler never returned")
	}

	close(transport.gate)

	select {
	case <-doneB:
	case <-time.After(5 * time.Second):
		t.Fatal("second client never completed")
	}
	assert.Equal(t, http.StatusOK, recB.Code)
	assert.Equal(t, "image/png", recB.Header().Get(echoHeaderContentType))
	assert.Equal(t, 1, transport.callCount(testLogoURL),
		"one client going away must not tear down the shared fetch")
}

func TestGetLogoUnavailable(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{fail: true})
	rec := doRequest(c, http.MethodGet, "/api/v1/logo?url="+testLogoURL, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrefetchLogos(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{payload: testPNG(t)}
	c := newTestController(t, transport)

	rec := doRequest(c, http.MethodPost, "/api/v1/logos/prefetch",
		`{"urls":["`+testLogoURL+`"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queued":1`)

	require.Eventually(t, func() bool {
		return transport.callCount(testLogoURL) == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestPrefetchLogosEmptyBody(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{payload: testPNG(t)})
	rec := doRequest(c, http.MethodPost, "/api/v1/logos/prefetch", `{"urls":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelPrefetching(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &stubTransport{payload: testPNG(t)})
	rec := doRequest(c, http.MethodPost, "/api/v1/logos/prefetch/cancel", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
