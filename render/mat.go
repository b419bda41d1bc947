package render

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// ErrStopped is returned by a renderer whose viewer asked to quit.
var ErrStopped = errors.New("renderer stopped by user")

const keyEscape = 27

// MatRenderer draws with OpenCV and optionally shows the result in a window.
type MatRenderer struct {
	window *gocv.Window
	font   gocv.HersheyFont
	scale  float64
}

// NewMatRenderer returns a renderer. An empty title renders off-screen.
func NewMatRenderer(title string) *MatRenderer {
	r := &MatRenderer{font: gocv.FontHersheySimplex, scale: 0.5}
	if title != "" {
		r.window = gocv.NewWindow(title)
	}
	return r
}

// Render implements Renderer. Pressing Esc in the window returns ErrStopped.
func (r *MatRenderer) Render(frame capture.Frame, dets []postprocess.Detection, caption string) error {
	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return errors.Wrap(err, "converting frame to mat")
	}
	defer mat.Close()

	r.Draw(&mat, dets, caption)

	if r.window == nil {
		return nil
	}
	r.window.IMShow(mat)
	if r.window.WaitKey(1) == keyEscape {
		return ErrStopped
	}
	return nil
}

// Draw outlines and labels dets on mat and writes caption in the corner.
func (r *MatRenderer) Draw(mat *gocv.Mat, dets []postprocess.Detection, caption string) {
	for _, d := range dets {
		c := ColorFor(d.ClassID)
		rect := d.Box.ToRectangle()
		gocv.Rectangle(mat, rect, c, Thickness)
		r.label(mat, Label(d), rect.Min, c)
	}
	if caption != "" {
		r.label(mat, caption, image.Point{}, color.RGBA{A: 255})
	}
}

func (r *MatRenderer) label(mat *gocv.Mat, s string, at image.Point, background color.RGBA) {
	size := gocv.GetTextSize(s, r.font, r.scale, 1)
	at.X = clamp(at.X, 0, mat.Cols()-size.X)
	at.Y = clamp(at.Y, 0, mat.Rows()-size.Y-4)

	gocv.Rectangle(mat, image.Rect(at.X, at.Y, at.X+size.X, at.Y+size.Y+4), background, -1)
	gocv.PutText(mat, s, image.Pt(at.X, at.Y+size.Y+2), r.font, r.scale, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
}

// Close implements Renderer.
func (r *MatRenderer) Close() error {
	var err error
	if r.window != nil {
		err = multierr.Append(err, r.window.Close())
		r.window = nil
	}
	return err
}
