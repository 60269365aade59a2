// Package normalizer turns arbitrary user images into bounded, opaque
// buffers and hands them to callers as short-lived JPEG files.
package normalizer

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxSize     = 512
	DefaultTempQuality = 95

	ResamplerLanczos = "lanczos"
	ResamplerNfnt    = "nfnt"
)

type Options struct {
	MaxSize     int
	TempDir     string
	TempQuality int
	Resampler   string
}

// PrepareOptions override per call what the Normalizer was built with.
type PrepareOptions struct {
	MaxSize int
	Rotate  int
}

type Normalizer struct {
	maxSize     int
	tempDir     string
	tempQuality int
	resampler   string
}

func New(opts Options) *Normalizer {
	n := &Normalizer{
		maxSize:     opts.MaxSize,
		tempDir:     opts.TempDir,
		tempQuality: opts.TempQuality,
		resampler:   opts.Resampler,
	}
	if n.maxSize <= 0 {
		n.maxSize = DefaultMaxSize
	}
	if n.tempQuality <= 0 || n.tempQuality > 100 {
		n.tempQuality = DefaultTempQuality
	}
	if n.resampler == "" {
		n.resampler = ResamplerLanczos
	}
	return n
}

func (n *Normalizer) MaxSize() int { return n.maxSize }

// Load decodes the file at path into an opaque buffer. The extension check
// is advisory: files outside the allow-list are still decoded.
func (n *Normalizer) Load(path string) (*image.NRGBA, error) {
	if !ValidateImageFormat(path) {
		logrus.WithFields(logrus.Fields{
			"path": path,
			"ext":  filepath.Ext(path),
		}).Warn("image extension is not in the supported list, trying to decode anyway")
	}

	img, err := decodeFirst(path, pathStrategies(path)...)
	if err != nil {
		return nil, err
	}
	return Flatten(img), nil
}

// LoadBytes is Load for in-memory uploads.
func (n *Normalizer) LoadBytes(name string, data []byte) (*image.NRGBA, error) {
	img, err := decodeFirst(name, bytesStrategies(data)...)
	if err != nil {
		return nil, err
	}
	return Flatten(img), nil
}

// Rotate turns img clockwise by degrees. Right angles are lossless; other
// angles expand the canvas and fill the corners with white.
func Rotate(img *image.NRGBA, degrees int) *image.NRGBA {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, float64(-degrees), color.White)
	}
}

// Dimensions returns the size after bounding the longer side to maxSize.
// Sizes already within bounds are returned unchanged.
func Dimensions(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || max(width, height) <= maxSize {
		return width, height
	}
	if height > width {
		w := int(math.Round(float64(width) * float64(maxSize) / float64(height)))
		return max(w, 1), maxSize
	}
	h := int(math.Round(float64(height) * float64(maxSize) / float64(width)))
	return maxSize, max(h, 1)
}

// Bound scales img down so that its longer side equals maxSize.
func (n *Normalizer) Bound(img *image.NRGBA, maxSize int) *image.NRGBA {
	if maxSize <= 0 {
		maxSize = n.maxSize
	}
	b := img.Bounds()
	w, h := Dimensions(b.Dx(), b.Dy(), maxSize)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	logrus.WithFields(logrus.Fields{
		"from":      []int{b.Dx(), b.Dy()},
		"to":        []int{w, h},
		"resampler": n.resampler,
	}).Info("resizing image")

	if n.resampler == ResamplerNfnt {
		return imaging.Clone(resize.Resize(uint(w), uint(h), img, resize.Lanczos3))
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Prepare runs the whole pipeline for path and calls fn with a reader over
// the temporary JPEG. The temporary file is gone when Prepare returns.
func (n *Normalizer) Prepare(ctx context.Context, path string, opts PrepareOptions, fn func(io.Reader) error) error {
	img, err := n.Load(path)
	if err != nil {
		return err
	}
	img = n.Bound(Rotate(img, opts.Rotate), opts.MaxSize)
	return n.WithTempFile(ctx, img, fn)
}
