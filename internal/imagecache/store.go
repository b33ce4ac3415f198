// Package imagecache stores decoded logo thumbnails keyed by source URL.
//
// The store is a two-level cache: a TTL'd in-memory layer for hot lookups
// and an optional sqlite-backed layer so thumbnails survive restarts. It is
// safe for concurrent use; the fetch coordinator consumes it as an opaque
// get/put facade and never holds its own lock across calls into it.
package imagecache

import (
	"bytes"
	"image"
	"image/png"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coinviewapp/coinview-go/internal/errors"
	"github.com/coinviewapp/coinview-go/internal/logging"
)

const (
	defaultMemoryTTL = 24 * time.Hour
	cleanupInterval  = 10 * time.Minute

	// warmLoadLimit caps how many recent rows are promoted into memory at
	// startup.
	warmLoadLimit = 500
)

// LogoCache is the persistent row for one cached thumbnail.
type LogoCache struct {
	URL       string `gorm:"primaryKey"`
	Data      []byte // PNG-encoded thumbnail
	Width     int
	Height    int
	FetchedAt time.Time
}

// Config controls store construction.
type Config struct {
	// MemoryTTL is how long entries stay in the memory layer.
	MemoryTTL time.Duration
	// DBPath is the sqlite file for the persistent layer; empty disables
	// persistence.
	DBPath string
	// Logger for store operations; nil falls back to a service logger.
	Logger *slog.Logger
}

// Store is the two-level thumbnail cache.
type Store struct {
	mem *gocache.Cache
	db  *gorm.DB // nil when persistence is disabled
	log *slog.Logger
}

// New creates a Store, opening (and migrating) the sqlite layer when a DB
// path is configured and warm-loading recent thumbnails into memory.
func New(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.ForService("imagecache")
	}
	ttl := cfg.MemoryTTL
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	s := &Store{
		mem: gocache.New(ttl, cleanupInterval),
		log: log,
	}

	if cfg.DBPath != "" {
		db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, errors.New(err).
				Component("imagecache").
				Category(errors.CategoryDatabase).
				Context("db_path", cfg.DBPath).
				Build()
		}
		if err := db.AutoMigrate(&LogoCache{}); err != nil {
			return nil, errors.New(err).
				Component("imagecache").
				Category(errors.CategoryDatabase).
				Context("operation", "migrate").
				Build()
		}
		s.db = db
		s.warmLoad()
	}

	return s, nil
}

// warmLoad promotes the most recently fetched rows into the memory layer.
// Failures only cost cache warmth, so they are logged and ignored.
func (s *Store) warmLoad() {
	var rows []LogoCache
	if err := s.db.Order("fetched_at desc").Limit(warmLoadLimit).Find(&rows).Error; err != nil {
		s.log.Warn("Failed to warm-load cached thumbnails", "error", err)
		return
	}
	loaded := 0
	for i := range rows {
		if img := decodeRow(&rows[i]); img != nil {
			s.mem.SetDefault(rows[i].URL, img)
			loaded++
		}
	}
	s.log.Info("Warm-loaded thumbnail cache", "rows", len(rows), "loaded", loaded)
}

// Get returns the cached thumbnail for url. On a memory miss it consults
// the persistent layer and promotes any hit back into memory.
func (s *Store) Get(url string) (image.Image, bool) {
	if v, ok := s.mem.Get(url); ok {
		if img, ok := v.(image.Image); ok {
			return img, true
		}
	}

	if s.db == nil {
		return nil, false
	}

	var row LogoCache
	err := s.db.First(&row, "url = ?", url).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("Thumbnail lookup failed", "url", url, "error", err)
		}
		return nil, false
	}

	img := decodeRow(&row)
	if img == nil {
		return nil, false
	}
	s.mem.SetDefault(url, img)
	return img, true
}

// Put stores a decoded thumbnail in both layers. Persistence is
// best-effort: database errors are logged, never surfaced, so a broken
// disk cannot take the image pipeline down.
func (s *Store) Put(url string, img image.Image) {
	if url == "" || img == nil {
		return
	}
	s.mem.SetDefault(url, img)

	if s.db == nil {
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.log.Warn("Failed to encode thumbnail for persistence", "url", url, "error", err)
		return
	}
	bounds := img.Bounds()
	row := LogoCache{
		URL:       url,
		Data:      buf.Bytes(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		FetchedAt: time.Now(),
	}
	if err := s.db.Save(&row).Error; err != nil {
		s.log.Warn("Failed to persist thumbnail", "url", url, "error", err)
	}
}

// Len returns the number of entries in the memory layer.
func (s *Store) Len() int {
	return s.mem.ItemCount()
}

// Close releases the persistent layer, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decodeRow(row *LogoCache) image.Image {
	img, err := png.Decode(bytes.NewReader(row.Data))
	if err != nil {
		return nil
	}
	return img
}
