// Package conf loads and holds the application settings from a YAML
// config file and environment variables via viper.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings is the root configuration structure.
type Settings struct {
	Debug bool `mapstructure:"debug"`

	Main struct {
		Name string    `mapstructure:"name"`
		Log  LogConfig `mapstructure:"log"`
	} `mapstructure:"main"`

	Fetcher    FetcherSettings    `mapstructure:"fetcher"`
	ImageCache ImageCacheSettings `mapstructure:"imagecache"`
	Market     MarketSettings     `mapstructure:"market"`
	Web        WebSettings        `mapstructure:"web"`
}

// LogConfig controls per-service file logging.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// FetcherSettings tunes the logo fetch coordinator.
type FetcherSettings struct {
	// Concurrency is the maximum number of simultaneous transport fetches.
	Concurrency int `mapstructure:"concurrency"`
	// MaxDimension bounds the decoded thumbnail's longest side in pixels.
	MaxDimension int `mapstructure:"maxdimension"`
	// Timeout bounds a single transport fetch.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxBytes caps the accepted response body size.
	MaxBytes int64 `mapstructure:"maxbytes"`
}

// ImageCacheSettings tunes the thumbnail cache facade.
type ImageCacheSettings struct {
	// MemoryTTL is how long decoded thumbnails stay in the memory layer.
	MemoryTTL time.Duration `mapstructure:"memoryttl"`
	// DBPath is the sqlite file backing the persistent layer; empty
	// disables persistence.
	DBPath string `mapstructure:"dbpath"`
}

// MarketSettings configures the market-data client.
type MarketSettings struct {
	BaseURL   string        `mapstructure:"baseurl"`
	Currency  string        `mapstructure:"currency"`
	CacheTTL  time.Duration `mapstructure:"cachettl"`
	RateLimit float64       `mapstructure:"ratelimit"` // requests per second
	PerPage   int           `mapstructure:"perpage"`
	Pages     int           `mapstructure:"pages"`
}

// WebSettings configures the HTTP API server.
type WebSettings struct {
	Listen string `mapstructure:"listen"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from disk and environment into a Settings
// struct and stores it as the process-wide instance.
func Load() (*Settings, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	if configDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(configDir, "coinview"))
	}

	viper.SetEnvPrefix("coinview")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env apply.
	}
	return nil
}

// GetSettings returns the loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
