package normalizer

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type strategy struct {
	name   string
	decode func() (image.Image, error)
}

// decodeFirst tries each strategy in order and returns the first success.
// When all of them fail the returned error carries every cause.
func decodeFirst(source string, strategies ...strategy) (image.Image, error) {
	causes := make([]error, 0, len(strategies))
	for _, s := range strategies {
		img, err := s.decode()
		if err == nil && img != nil {
			return img, nil
		}
		if err == nil {
			err = errors.New("decoder returned no image")
		}
		causes = append(causes, errors.Wrap(err, s.name))
	}
	return nil, &entity.UnreadableImageError{Source: source, Causes: causes}
}

func pathStrategies(path string) []strategy {
	return []strategy{
		{
			name: "imaging",
			decode: func() (image.Image, error) {
				return imaging.Open(path, imaging.AutoOrientation(true))
			},
		},
		{
			name: "raw bytes",
			decode: func() (image.Image, error) {
				data, err := os.ReadFile(path)
				if err != nil {
					return nil, err
				}
				img, _, err := image.Decode(bytes.NewReader(data))
				return img, err
			},
		},
	}
}

func bytesStrategies(data []byte) []strategy {
	return []strategy{
		{
			name: "imaging",
			decode: func() (image.Image, error) {
				return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
			},
		},
		{
			name: "image.Decode",
			decode: func() (image.Image, error) {
				img, _, err := image.Decode(bytes.NewReader(data))
				return img, err
			},
		},
	}
}

// Flatten returns an opaque copy of img. Transparent areas are composited
// onto white.
func Flatten(img image.Image) *image.NRGBA {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
