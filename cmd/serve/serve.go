// Package serve implements the long-running web server command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coinviewapp/coinview-go/internal/conf"
	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/imagecache"
	"github.com/coinviewapp/coinview-go/internal/logofetch"
	"github.com/coinviewapp/coinview-go/internal/market"
	"github.com/coinviewapp/coinview-go/internal/observability"
	"github.com/coinviewapp/coinview-go/internal/webserver"
)

const shutdownGrace = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CoinView API server",
		Long:  "Serve market data and coin logo thumbnails over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.Web.Listen, "listen", viper.GetString("web.listen"), "Listen address and port for the HTTP API")
	cobra.CheckErr(viper.BindPFlags(cmd.Flags()))

	return cmd
}

func runServer(settings *conf.Settings) error {
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	store, err := imagecache.New(imagecache.Config{
		MemoryTTL: settings.ImageCache.MemoryTTL,
		DBPath:    settings.ImageCache.DBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to open thumbnail cache: %w", err)
	}
	defer store.Close()

	logoClient := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Fetcher.Timeout,
		MaxBodyBytes:   settings.Fetcher.MaxBytes,
	})
	defer logoClient.Close()

	fetcher := logofetch.New(logofetch.Config{
		Concurrency:  settings.Fetcher.Concurrency,
		MaxDimension: settings.Fetcher.MaxDimension,
	}, logofetch.NewHTTPTransport(logoClient), store, nil, metrics.LogoFetcher)
	defer fetcher.Shutdown()

	marketClient, err := market.NewClient(market.Config{
		BaseURL:   settings.Market.BaseURL,
		Currency:  settings.Market.Currency,
		CacheTTL:  settings.Market.CacheTTL,
		RateLimit: settings.Market.RateLimit,
	}, metrics.Market)
	if err != nil {
		return fmt.Errorf("failed to create market client: %w", err)
	}
	defer marketClient.Close()

	controller := webserver.New(settings, marketClient, fetcher, metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- controller.Start(settings.Web.Listen)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		fmt.Printf("Received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return controller.Shutdown(ctx)
}
