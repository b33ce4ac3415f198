// Package fetch implements the one-shot logo fetch command.
package fetch

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinviewapp/coinview-go/internal/conf"
	"github.com/coinviewapp/coinview-go/internal/httpclient"
	"github.com/coinviewapp/coinview-go/internal/imagecache"
	"github.com/coinviewapp/coinview-go/internal/logofetch"
)

// Command creates the fetch command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one coin logo and write its thumbnail to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(settings, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "logo.png", "Output file for the PNG thumbnail")

	return cmd
}

func runFetch(settings *conf.Settings, rawURL, output string) error {
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

	result := make(chan image.Image, 1)
	fetcher.Request(rawURL, logofetch.PriorityHigh, func(img image.Image) {
		result <- img
	})

	img := <-result
	if img == nil {
		return fmt.Errorf("no image available for %s", rawURL)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", output, err)
	}

	bounds := img.Bounds()
	fmt.Printf("Wrote %dx%d thumbnail to %s\n", bounds.Dx(), bounds.Dy(), output)
	return nil
}
