package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coinviewapp/coinview-go/cmd/fetch"
	"github.com/coinviewapp/coinview-go/cmd/serve"
	"github.com/coinviewapp/coinview-go/cmd/warm"
	"github.com/coinviewapp/coinview-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coinview",
		Short: "CoinView-Go CLI",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		fetch.Command(settings),
		warm.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags shared by all subcommands.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Fetcher.Concurrency, "concurrency", viper.GetInt("fetcher.concurrency"), "Maximum simultaneous logo fetches")
	rootCmd.PersistentFlags().IntVar(&settings.Fetcher.MaxDimension, "maxdimension", viper.GetInt("fetcher.maxdimension"), "Longest side of decoded thumbnails in pixels")
	rootCmd.PersistentFlags().StringVar(&settings.ImageCache.DBPath, "dbpath", viper.GetString("imagecache.dbpath"), "Path to the thumbnail cache database (empty disables persistence)")

	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))
}
