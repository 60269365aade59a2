package normalizer

import (
	"context"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const tempPattern = "coloringbook-*.jpg"

// WithTempFile writes img as JPEG to a fresh temporary file, reopens it for
// reading and passes the handle to fn. The handle is closed and the file
// removed on every return path, including a panic inside fn.
func (n *Normalizer) WithTempFile(ctx context.Context, img image.Image, fn func(io.Reader) error) error {
	tmp, err := os.CreateTemp(n.tempDir, tempPattern)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	name := tmp.Name()
	defer removeQuietly(name)

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(n.tempQuality)); err != nil {
		tmp.Close()
		return errors.Wrap(err, "encode temp jpeg")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "reopen temp file")
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(f)
}

func removeQuietly(name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", name).Warn("failed to remove temp file")
	}
}
