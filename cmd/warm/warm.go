// Package warm implements the cache warming command: pull the top market
// pages and prefetch every coin logo into the thumbnail cache.
package warm

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/coinviewapp/coinview-go/internal/conf"
	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/imagecache"
	"github.com/coinviewapp/coinview-go/internal/logofetch"
	"github.com/coinviewapp/coinview-go/internal/market"
)

// Command creates the warm command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Prefetch logos for the top coins into the thumbnail cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWarm(cmd.Context(), settings)
		},
	}

	cmd.Flags().IntVar(&settings.Market.Pages, "pages", viper.GetInt("market.pages"), "Number of market pages to warm")
	cmd.Flags().IntVar(&settings.Market.PerPage, "perpage", viper.GetInt("market.perpage"), "Coins per market page")
	cobra.CheckErr(viper.BindPFlags(cmd.Flags()))

	return cmd
}

func runWarm(ctx context.Context, settings *conf.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	marketClient, err := market.NewClient(market.Config{
		BaseURL:   settings.Market.BaseURL,
		Currency:  settings.Market.Currency,
		CacheTTL:  settings.Market.CacheTTL,
		RateLimit: settings.Market.RateLimit,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create market client: %w", err)
	}
	defer marketClient.Close()

	pages := settings.Market.Pages
	if pages < 1 {
		pages = 1
	}
	perPage := settings.Market.PerPage
	if perPage < 1 {
		perPage = 100
	}

	// Load all pages concurrently; the client's own limiter paces the
	// upstream calls.
	results := make([][]market.Coin, pages)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			coins, err := marketClient.TopMarkets(gctx, i+1, perPage)
			if err != nil {
				return err
			}
			results[i] = coins
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load market pages: %w", err)
	}

	var urls []string
	for _, coins := range results {
		urls = append(urls, market.LogoURLs(coins)...)
	}
	if len(urls) == 0 {
		fmt.Println("Nothing to warm")
		return nil
	}

	store, err := imagecache.New(imagecache.Config{
		MemoryTTL: settings.ImageCache.MemoryTTL,
		DBPath:    settings.ImageCache.DBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to open thumbnail cache: %w", err)
	}
	defer store.Close()

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Fetcher.Timeout,
		MaxBodyBytes:   settings.Fetcher.MaxBytes,
	})
	defer client.Close()

	fetcher := logofetch.New(logofetch.Config{
		Concurrency:  settings.Fetcher.Concurrency,
		MaxDimension: settings.Fetcher.MaxDimension,
	}, logofetch.NewHTTPTransport(client), store, logofetch.CallerExecutor{}, nil)
	defer fetcher.Shutdown()

	// Pace admissions so a large warm run does not hammer the CDN.
	limiter := rate.NewLimiter(rate.Limit(10), 4)

	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	fetched, missed := 0, 0

	for _, u := range urls {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		wg.Add(1)
		fetcher.Request(u, logofetch.PriorityLow, func(img image.Image) {
			mu.Lock()
			if img != nil {
				fetched++
			} else {
				missed++
			}
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	fmt.Printf("Warmed %d logos (%d unavailable) in %s, cache now holds %d thumbnails\n",
		fetched, missed, time.Since(start).Round(time.Millisecond), store.Len())
	return nil
}
