package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder for image.Decode
	"image/jpeg"
	_ "image/png" // register PNG decoder for image.Decode

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder for image.Decode
)

// previewQuality is the JPEG quality used for derived previews.
const previewQuality = 80

// MaxPreviewPixels bounds the decoded size of an image. Larger images keep
// their original bytes as preview instead of being decoded.
const MaxPreviewPixels = 40_000_000

// DerivePreview returns a data URL suitable for an <img> tag or a terminal
// link. Decodable images are downsized to maxDimension and re-encoded as
// JPEG; anything else (HEIC, corrupt files) falls back to the original bytes.
func DerivePreview(p *Photo, maxDimension int) string {
	data, mimeType, err := thumbnail(p.Data, maxDimension)
	if err != nil {
		log.Debug().Err(err).Str("filename", p.Filename).Msg("Preview fallback to original payload")
		return DataURL(p.ContentType, p.Data)
	}
	return DataURL(mimeType, data)
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// thumbnail decodes, downsizes and re-encodes an image as JPEG.
func thumbnail(data []byte, maxDimension int) ([]byte, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return nil, "", fmt.Errorf("image too large to preview: %dx%d", cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := previewDimensions(bounds.Dx(), bounds.Dy(), maxDimension)

	var out image.Image = img
	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, "", fmt.Errorf("encode preview: %w", err)
	}

	log.Trace().
		Str("format", format).
		Int("origWidth", bounds.Dx()).
		Int("origHeight", bounds.Dy()).
		Int("newWidth", newWidth).
		Int("newHeight", newHeight).
		Int("outputSize", buf.Len()).
		Msg("Preview derived")

	return buf.Bytes(), "image/jpeg", nil
}

// previewDimensions scales width and height so the longest side is at most
// maxDimension, preserving aspect ratio. Smaller images are left untouched.
func previewDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
