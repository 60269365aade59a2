package normalizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFlattensTransparency(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	fillNRGBA(src, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{}) // fully transparent
	src.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 128})
	path := writePNG(t, dir, "alpha.png", src)

	n := New(Options{})
	img, err := n.Load(path)
	require.NoError(t, err)

	assert.True(t, img.Opaque())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, img.NRGBAAt(2, 2))

	half := img.NRGBAAt(1, 0)
	assert.Equal(t, uint8(255), half.A)
	assert.InDelta(t, 127, int(half.R), 2)
}

func TestLoadConvertsOtherColorModes(t *testing.T) {
	dir := t.TempDir()

	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range gray.Pix {
		gray.Pix[i] = 200
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 3, 2), color.Palette{
		color.RGBA{A: 0},
		color.RGBA{R: 255, A: 255},
	})
	paletted.SetColorIndex(1, 1, 1)

	tests := []struct {
		name  string
		img   image.Image
		check func(*testing.T, *image.NRGBA)
	}{
		{
			name: "grayscale",
			img:  gray,
			check: func(t *testing.T, out *image.NRGBA) {
				assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, out.NRGBAAt(0, 0))
			},
		},
		{
			name: "palette with transparent entry",
			img:  paletted,
			check: func(t *testing.T, out *image.NRGBA) {
				assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(0, 0))
				assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, out.NRGBAAt(1, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePNG(t, dir, tt.name+".png", tt.img)
			out, err := New(Options{}).Load(path)
			require.NoError(t, err)
			assert.True(t, out.Opaque())
			assert.Equal(t, 3, out.Bounds().Dx())
			assert.Equal(t, 2, out.Bounds().Dy())
			tt.check(t, out)
		})
	}
}

func TestLoadNonASCIIPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "사진 폴더")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	fillImageWithColor(src, color.RGBA{R: 100, G: 150, B: 200, A: 255})
	path := writeJPEG(t, dir, "봄 꽃.JPG", src)

	img, err := New(Options{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestLoadOutsideAllowListStillDecodes(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 5, 5))
	fillImageWithColor(src, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	path := filepath.Join(dir, "upload.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	assert.False(t, ValidateImageFormat(path))
	img, err := New(Options{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
}

func TestLoadUnreadable(t *testing.T) {
	dir := t.TempDir()

	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fillImageWithColor(src, color.RGBA{R: 50, G: 100, B: 150, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}))
	truncated := buf.Bytes()[:buf.Len()/2]

	tests := []struct {
		name string
		data []byte
	}{
		{name: "truncated.jpg", data: truncated},
		{name: "empty.png", data: []byte{}},
		{name: "garbage.webp", data: []byte("definitely not an image")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			_, err := New(Options{}).Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrUnreadableImage)

			var unreadable *entity.UnreadableImageError
			require.True(t, errors.As(err, &unreadable))
			assert.Len(t, unreadable.Causes, 2, "both decode strategies must be attempted")
			assert.Equal(t, path, unreadable.Source)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(Options{}).Load(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorIs(t, err, entity.ErrUnreadableImage)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBytes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := New(Options{}).LoadBytes("upload.png", buf.Bytes())
	require.NoError(t, err)
	assert.True(t, img.Opaque())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(3, 3))

	_, err = New(Options{}).LoadBytes("broken.png", buf.Bytes()[:10])
	assert.ErrorIs(t, err, entity.ErrUnreadableImage)
}

func TestDecodeFirstFallsBack(t *testing.T) {
	want := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	primaryErr := errors.New("primary failed")
	calls := 0

	img, err := decodeFirst("x",
		strategy{name: "primary", decode: func() (image.Image, error) { calls++; return nil, primaryErr }},
		strategy{name: "fallback", decode: func() (image.Image, error) { calls++; return want, nil }},
	)
	require.NoError(t, err)
	assert.Same(t, want, img)
	assert.Equal(t, 2, calls)

	_, err = decodeFirst("x",
		strategy{name: "primary", decode: func() (image.Image, error) { return nil, primaryErr }},
		strategy{name: "empty", decode: func() (image.Image, error) { return nil, nil }},
	)
	assert.ErrorIs(t, err, primaryErr)
	assert.ErrorIs(t, err, entity.ErrUnreadableImage)
}

func TestBound(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxSize       int
		wantW, wantH  int
	}{
		{name: "portrait 1024x2048", width: 1024, height: 2048, maxSize: 512, wantW: 256, wantH: 512},
		{name: "landscape", width: 2000, height: 1500, maxSize: 512, wantW: 512, wantH: 384},
		{name: "square", width: 600, height: 600, maxSize: 512, wantW: 512, wantH: 512},
		{name: "within bounds", width: 300, height: 200, maxSize: 512, wantW: 300, wantH: 200},
		{name: "exactly max", width: 512, height: 100, maxSize: 512, wantW: 512, wantH: 100},
		{name: "rounding", width: 1000, height: 3, maxSize: 512, wantW: 512, wantH: 2},
		{name: "thin stays visible", width: 4000, height: 1, maxSize: 512, wantW: 512, wantH: 1},
	}

	for _, resampler := range []string{ResamplerLanczos, ResamplerNfnt} {
		n := New(Options{Resampler: resampler})
		for _, tt := range tests {
			t.Run(resampler+"/"+tt.name, func(t *testing.T) {
				src := image.NewNRGBA(image.Rect(0, 0, tt.width, tt.height))
				out := n.Bound(src, tt.maxSize)
				assert.Equal(t, tt.wantW, out.Bounds().Dx())
				assert.Equal(t, tt.wantH, out.Bounds().Dy())
			})
		}
	}
}

func TestBoundWithinLimitsIsNoop(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, src, New(Options{}).Bound(src, 512))
}

func TestBoundDefaultsToConfiguredMax(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	out := New(Options{MaxSize: 100}).Bound(src, 0)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
}

func TestRotate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	tests := []struct {
		degrees      int
		wantW, wantH int
		redX, redY   int
	}{
		{degrees: 0, wantW: 4, wantH: 2, redX: 0, redY: 0},
		{degrees: 90, wantW: 2, wantH: 4, redX: 1, redY: 0},
		{degrees: 180, wantW: 4, wantH: 2, redX: 3, redY: 1},
		{degrees: 270, wantW: 2, wantH: 4, redX: 0, redY: 3},
		{degrees: -90, wantW: 2, wantH: 4, redX: 0, redY: 3},
		{degrees: 450, wantW: 2, wantH: 4, redX: 1, redY: 0},
	}

	for _, tt := range tests {
		out := Rotate(src, tt.degrees)
		assert.Equal(t, tt.wantW, out.Bounds().Dx(), "degrees=%d", tt.degrees)
		assert.Equal(t, tt.wantH, out.Bounds().Dy(), "degrees=%d", tt.degrees)
		assert.Equal(t, uint8(255), out.NRGBAAt(tt.redX, tt.redY).R, "degrees=%d", tt.degrees)
	}
}

func TestWithTempFileRemovesFile(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	fillNRGBA(img, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	t.Run("success", func(t *testing.T) {
		dir := t.TempDir()
		n := New(Options{TempDir: dir})

		err := n.WithTempFile(context.Background(), img, func(r io.Reader) error {
			entries, _ := os.ReadDir(dir)
			assert.Len(t, entries, 1, "temp file must exist during the call")

			decoded, err := jpeg.Decode(r)
			require.NoError(t, err)
			assert.Equal(t, 16, decoded.Bounds().Dx())
			assert.Equal(t, 8, decoded.Bounds().Dy())
			return nil
		})
		require.NoError(t, err)
		assertEmptyDir(t, dir)
	})

	t.Run("callback error", func(t *testing.T) {
		dir := t.TempDir()
		n := New(Options{TempDir: dir})
		boom := errors.New("upload failed")

		err := n.WithTempFile(context.Background(), img, func(io.Reader) error { return boom })
		assert.ErrorIs(t, err, boom)
		assertEmptyDir(t, dir)
	})

	t.Run("callback panic", func(t *testing.T) {
		dir := t.TempDir()
		n := New(Options{TempDir: dir})

		assert.Panics(t, func() {
			_ = n.WithTempFile(context.Background(), img, func(io.Reader) error { panic("client crashed") })
		})
		assertEmptyDir(t, dir)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		n := New(Options{TempDir: dir})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := n.WithTempFile(ctx, img, func(io.Reader) error { called = true; return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
		assertEmptyDir(t, dir)
	})
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	tmpDir := t.TempDir()

	src := image.NewRGBA(image.Rect(0, 0, 1024, 2048))
	fillImageWithColor(src, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	path := writePNG(t, dir, "tall.png", src)

	n := New(Options{TempDir: tmpDir})
	var got image.Rectangle
	err := n.Prepare(context.Background(), path, PrepareOptions{MaxSize: 512, Rotate: 90}, func(r io.Reader) error {
		img, err := jpeg.Decode(r)
		if err != nil {
			return err
		}
		got = img.Bounds()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 512, got.Dx())
	assert.Equal(t, 256, got.Dy())
	assertEmptyDir(t, tmpDir)
}

func TestPrepareUnreadableCreatesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	tmpDir := t.TempDir()
	path := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644))

	called := false
	err := New(Options{TempDir: tmpDir}).Prepare(context.Background(), path, PrepareOptions{}, func(io.Reader) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, entity.ErrUnreadableImage)
	assert.False(t, called)
	assertEmptyDir(t, tmpDir)
}

func TestJPEGRoundTripKeepsShape(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 37, 23))
	for y := 0; y < 23; y++ {
		for x := 0; x < 37; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 10), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}))
	out, err := New(Options{}).LoadBytes("round.jpg", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, src.Bounds().Size(), out.Bounds().Size())
	assert.True(t, out.Opaque())
	c := out.NRGBAAt(18, 11)
	assert.InDelta(t, 108, int(c.R), 12)
	assert.InDelta(t, 110, int(c.G), 12)
	assert.InDelta(t, 128, int(c.B), 12)
}

func fillImageWithColor(img *image.RGBA, c color.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func fillNRGBA(img *image.NRGBA, c color.NRGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func writeJPEG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	return path
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}
