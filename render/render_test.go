package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

func TestLabel(t *testing.T) {
	d := postprocess.Detection{ClassName: "person", Confidence: 0.8713}
	assert.Equal(t, "person: 0.87", Label(d))
}

func TestFPSCaption(t *testing.T) {
	assert.Equal(t, "fps: 12.3", FPSCaption(12.34))
	assert.Equal(t, "fps: 0.0", FPSCaption(0))
}

func TestClassificationCaption(t *testing.T) {
	c := postprocess.Classification{ClassID: 3, Label: "banana", Confidence: 0.5}
	assert.Equal(t, "banana: 0.50", ClassificationCaption(c, true))
	assert.Equal(t, "Nothing is detected.", ClassificationCaption(c, false))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, ColorFor(1), ColorFor(1+len(palette)))
	assert.NotEqual(t, ColorFor(0), ColorFor(1))
	assert.Equal(t, ColorFor(2), ColorFor(-2))
}

func TestDraw_Outline(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	det := postprocess.Detection{
		ClassID:    0,
		ClassName:  "a",
		Confidence: 0.9,
		Box:        images.Rect{X: 40, Y: 50, Width: 40, Height: 30},
	}

	Draw(dst, []postprocess.Detection{det}, "")

	want := ColorFor(0)
	assert.Equal(t, want, dst.RGBAAt(40, 70), "left edge")
	assert.Equal(t, want, dst.RGBAAt(41, 70), "left edge, second pixel")
	assert.Equal(t, want, dst.RGBAAt(79, 70), "right edge")
	assert.Equal(t, want, dst.RGBAAt(60, 79), "bottom edge")
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(60, 70), "interior untouched")
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(10, 95), "outside untouched")
}

func TestDraw_ClipsOffscreenBoxes(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	det := postprocess.Detection{
		ClassName: "edge",
		Box:       images.Rect{X: -20, Y: -20, Width: 40, Height: 40},
	}

	assert.NotPanics(t, func() {
		Draw(dst, []postprocess.Detection{det}, "fps: 1.0")
	})
	assert.Equal(t, ColorFor(0), dst.RGBAAt(19, 15), "right edge")
	assert.Equal(t, ColorFor(0), dst.RGBAAt(5, 19), "bottom edge")
}

func TestImageRenderer(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 74, 58))
	var got *image.RGBA
	r := &ImageRenderer{Output: func(_ capture.Frame, img *image.RGBA) error {
		got = img
		return nil
	}}

	err := r.Render(capture.Frame{ID: 1, Image: src}, nil, "fps: 30.0")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Same(t, got, r.Last())
	assert.Equal(t, image.Rect(0, 0, 64, 48), got.Bounds())
	assert.Equal(t, color.RGBA{}, src.RGBAAt(10, 10), "source frame is not modified")
	assert.NoError(t, r.Close())
}
