package imagecache_test

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinviewapp/coinview-go/internal/imagecache"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestMemoryOnlyRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := imagecache.New(imagecache.Config{})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.Get("http://example.com/btc.png")
	assert.False(t, ok, "empty store should miss")

	img := testImage(16, 16)
	store.Put("http://example.com/btc.png", img)

	got, ok := store.Get("http://example.com/btc.png")
	require.True(t, ok)
	assert.Equal(t, img.Bounds(), got.Bounds())
	assert.Equal(t, 1, store.Len())
}

func TestPutIgnoresEmptyKeyAndNilImage(t *testing.T) {
	t.Parallel()

	store, err := imagecache.New(imagecache.Config{})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	store.Put("", testImage(4, 4))
	store.Put("http://example.com/x.png", nil)
	assert.Equal(t, 0, store.Len())
}

func TestPersistenceAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "thumbs.db")

	store, err := imagecache.New(imagecache.Config{DBPath: dbPath})
	require.NoError(t, err)

	img := testImage(32, 24)
	store.Put("http://example.com/eth.png", img)
	require.NoError(t, store.Close())

	reopened, err := imagecache.New(imagecache.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.Get("http://example.com/eth.png")
	require.True(t, ok, "thumbnail should survive a reopen")
	assert.Equal(t, 32, got.Bounds().Dx())
	assert.Equal(t, 24, got.Bounds().Dy())
}

func TestDBFallbackOnMemoryMiss(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "thumbs.db")

	store, err := imagecache.New(imagecache.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	store.Put("http://example.com/sol.png", testImage(8, 8))

	// A second handle over the same file simulates a cold memory layer.
	cold, err := imagecache.New(imagecache.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer func() { _ = cold.Close() }()

	got, ok := cold.Get("http://example.com/sol.png")
	require.True(t, ok)
	assert.Equal(t, 8, got.Bounds().Dx())
}
