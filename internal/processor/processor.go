package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	// Register the WebP decoder so WebP originals can be processed too.
	_ "golang.org/x/image/webp"

	"github.com/aliskhannn/photo-pipeline/internal/model"
)

// Derivative names.
const (
	Web   = "web"
	Thumb = "thumb"
)

// Default derivative settings.
const (
	DefaultWebMaxSide   = 1600
	DefaultThumbMaxSide = 400
	DefaultWebQuality   = 88
	DefaultThumbQuality = 82

	// maxMethod is libwebp's slowest, best-compressing effort level.
	maxMethod = 6
)

// ErrDecode is returned when the original cannot be decoded as an image.
var ErrDecode = errors.New("failed to decode image")

// Options controls the size and quality of one derivative.
type Options struct {
	MaxSide int
	Quality int
}

// Config holds the settings for both derivatives.
type Config struct {
	Web   Options
	Thumb Options
}

// DefaultConfig returns the 1600px/q88 web and 400px/q82 thumbnail settings.
func DefaultConfig() Config {
	return Config{
		Web:   Options{MaxSide: DefaultWebMaxSide, Quality: DefaultWebQuality},
		Thumb: Options{MaxSide: DefaultThumbMaxSide, Quality: DefaultThumbQuality},
	}
}

// Processor produces the web and thumbnail derivatives of an original.
// It is a pure transform: it never touches storage and never mutates its input.
type Processor struct {
	cfg Config
}

// New creates a new Processor with the given derivative settings.
func New(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

// Generate decodes data, applies the embedded orientation and returns the
// web and thumbnail derivatives encoded as lossy WebP.
func (p *Processor) Generate(data []byte) (model.Derivative, model.Derivative, error) {
	// Decode into an image object, rotating according to EXIF orientation.
	// A missing or unreadable orientation leaves the pixels as stored.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return model.Derivative{}, model.Derivative{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	web, err := p.derive(img, Web, p.cfg.Web)
	if err != nil {
		return model.Derivative{}, model.Derivative{}, err
	}

	thumb, err := p.derive(img, Thumb, p.cfg.Thumb)
	if err != nil {
		return model.Derivative{}, model.Derivative{}, err
	}

	return web, thumb, nil
}

// derive resizes img to fit opts.MaxSide and encodes it.
func (p *Processor) derive(img image.Image, name string, opts Options) (model.Derivative, error) {
	resized := Resize(img, opts.MaxSide)

	// Derivative consumers expect opaque RGB, so alpha is dropped.
	opaque := imaging.AdjustFunc(resized, func(c color.NRGBA) color.NRGBA {
		c.A = 0xff
		return c
	})

	buf, err := encode(opaque, opts.Quality)
	if err != nil {
		return model.Derivative{}, fmt.Errorf("failed to encode %s derivative: %w", name, err)
	}

	b := opaque.Bounds()

	return model.Derivative{
		Name:   name,
		Bytes:  buf,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Resize scales img so that its longer edge equals maxSide, preserving the
// aspect ratio. Images already within the bound keep their dimensions.
func Resize(img image.Image, maxSide int) *image.NRGBA {
	b := img.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), maxSide)

	if w == b.Dx() && h == b.Dy() {
		return imaging.Clone(img)
	}

	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// FitDimensions returns the target size of a w x h image bounded by maxSide.
// The shorter edge is rounded to the nearest pixel and never drops below 1.
func FitDimensions(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || max(w, h) <= maxSide {
		return w, h
	}

	if w >= h {
		return maxSide, scaled(h, maxSide, w)
	}

	return scaled(w, maxSide, h), maxSide
}

func scaled(shorter, maxSide, longer int) int {
	v := int(math.Round(float64(shorter) * float64(maxSide) / float64(longer)))
	return max(v, 1)
}

func encode(img image.Image, quality int) ([]byte, error) {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return nil, fmt.Errorf("invalid webp options: %w", err)
	}
	opts.Method = maxMethod

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
