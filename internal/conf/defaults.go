package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers default values for all settings keys.
func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "CoinView")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs")

	viper.SetDefault("fetcher.concurrency", 4)
	viper.SetDefault("fetcher.maxdimension", 256)
	viper.SetDefault("fetcher.timeout", 15*time.Second)
	viper.SetDefault("fetcher.maxbytes", int64(5*1024*1024))

	viper.SetDefault("imagecache.memoryttl", 24*time.Hour)
	viper.SetDefault("imagecache.dbpath", "coinview.db")

	viper.SetDefault("market.baseurl", "https://api.coingecko.com/api/v3")
	viper.SetDefault("market.currency", "usd")
	viper.SetDefault("market.cachettl", 60*time.Second)
	viper.SetDefault("market.ratelimit", 2.0)
	viper.SetDefault("market.perpage", 100)
	viper.SetDefault("market.pages", 2)

	viper.SetDefault("web.listen", ":8080")
}
