package utils

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// MaxTemplateWidth bounds uploaded event template images. Uploads come
// straight off phone cameras and are far larger than anything the
// event pages render.
const MaxTemplateWidth = 1600

// NormalizeTemplateImage decodes an uploaded template image, downsizes
// it to at most MaxTemplateWidth wide (keeping aspect ratio) and
// re-encodes it as JPEG. Images already small enough are only
// re-encoded.
func NormalizeTemplateImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode template image: %w", err)
	}

	if img.Bounds().Dx() > MaxTemplateWidth {
		img = imaging.Resize(img, MaxTemplateWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode template image: %w", err)
	}

	return buf.Bytes(), nil
}
