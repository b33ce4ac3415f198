package logofetch

import (
	"bytes"
	"image"

	// Registered decoders for the formats coin logo CDNs actually serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/coinviewapp/coinview-go/internal/errors"
)

// decodeThumbnail decodes raw fetched bytes and downsamples the result so
// its longest side is at most maxDim pixels, preserving aspect ratio.
// Logos are only ever displayed small; capping the decoded size bounds
// peak memory no matter how large the source image is.
func decodeThumbnail(data []byte, maxDim int) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(err).
			Component("logofetch").
			Category(errors.CategoryImageDecode).
			Context("bytes", len(data)).
			Build()
	}

	bounds := img.Bounds()
	if maxDim > 0 && (bounds.Dx() > maxDim || bounds.Dy() > maxDim) {
		img = resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
	}
	return img, nil
}
