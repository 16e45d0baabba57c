package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/gift"
	_ "golang.org/x/image/webp"
)

const (
	JPEGQuality = 90
	// MaxSourcePixels bounds decoding work for a single upload.
	MaxSourcePixels = 50_000_000
)

var ErrNotImage = errors.New("file is not a supported image")

// Result is the image as it should be stored.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
	Resized     bool
}

var formats = map[string]struct{ contentType, ext string }{
	"jpeg": {"image/jpeg", ".jpg"},
	"png":  {"image/png", ".png"},
	"gif":  {"image/gif", ".gif"},
	"webp": {"image/webp", ".webp"},
}

// Normalize checks that data is a JPEG, PNG, GIF or WebP image. Images wider or taller than maxDim are
// scaled down to fit and re-encoded as JPEG; anything else is returned byte for byte.
func Normalize(data []byte, maxDim int) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}
	f, ok := formats[format]
	if !ok {
		return nil, ErrNotImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", ErrNotImage, cfg.Width, cfg.Height)
	}

	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return &Result{
			Data:        data,
			ContentType: f.contentType,
			Ext:         f.ext,
			Width:       cfg.Width,
			Height:      cfg.Height,
		}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	dst := processImage(src, gift.ResizeToFit(maxDim, maxDim, gift.LanczosResampling))
	out, err := encodeImage(dst)
	if err != nil {
		return nil, err
	}
	b := dst.Bounds()
	return &Result{
		Data:        out,
		ContentType: "image/jpeg",
		Ext:         ".jpg",
		Width:       b.Dx(),
		Height:      b.Dy(),
		Resized:     true,
	}, nil
}

func processImage(src image.Image, filters ...gift.Filter) image.Image {
	g := gift.New(filters...)
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
