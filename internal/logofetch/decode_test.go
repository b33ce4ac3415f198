package logofetch

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinviewapp/coinview-go/internal/errors"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDecodeThumbnailSmallImagePassthrough(t *testing.T) {
	t.Parallel()

	img, err := decodeThumbnail(encodePNG(t, 32, 32), 256)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestDecodeThumbnailDownsamplesLargeImage(t *testing.T) {
	t.Parallel()

	img, err := decodeThumbnail(encodePNG(t, 512, 256), 128)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy(), "aspect ratio must be preserved")
}

func TestDecodeThumbnailZeroMaxDimDisablesResize(t *testing.T) {
	t.Parallel()

	img, err := decodeThumbnail(encodePNG(t, 300, 300), 0)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestDecodeThumbnailJPEG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20)), nil))

	img, err := decodeThumbnail(buf.Bytes(), 256)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestDecodeThumbnailGarbageInput(t *testing.T) {
	t.Parallel()

	img, err := decodeThumbnail([]byte("<html>404 not found</html>"), 256)
	require.Error(t, err)
	assert.Nil(t, img)

	var enhanced *errors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, string(errors.CategoryImageDecode), enhanced.GetCategory())
}

func TestValidRequestURL(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://assets.example.com/coins/bitcoin.png",
		"http://cdn.example.org/eth.jpg",
	}
	for _, u := range valid {
		assert.True(t, validRequestURL(u), u)
	}

	invalid := []string{
		"",
		"bitcoin.png",
		"/coins/bitcoin.png",
		"ftp://example.com/a.png",
		"https://",
		"://missing-scheme",
	}
	for _, u := range invalid {
		assert.False(t, validRequestURL(u), u)
	}
}
