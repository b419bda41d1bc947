package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// ImageRenderer draws overlays in pure Go onto a copy of each frame.
type ImageRenderer struct {
	// Output receives every rendered frame. Nil keeps only the last one.
	Output func(frame capture.Frame, img *image.RGBA) error

	mu   sync.Mutex
	last *image.RGBA
}

// Render implements Renderer.
func (r *ImageRenderer) Render(frame capture.Frame, dets []postprocess.Detection, caption string) error {
	b := frame.Image.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame.Image, b.Min, draw.Src)

	Draw(canvas, dets, caption)

	r.mu.Lock()
	r.last = canvas
	r.mu.Unlock()

	if r.Output != nil {
		return r.Output(frame, canvas)
	}
	return nil
}

// Last returns the most recently rendered frame, or nil.
func (r *ImageRenderer) Last() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Close implements Renderer.
func (r *ImageRenderer) Close() error { return nil }

// Draw outlines every detection on dst, labels it, and writes caption in the
// top-left corner. Boxes partly outside dst are clipped.
//
// Arguments:
//   - dst: The canvas, modified in place.
//   - dets: Detections in dst pixel coordinates.
//   - caption: Corner text. Empty draws nothing.
func Draw(dst *image.RGBA, dets []postprocess.Detection, caption string) {
	for _, d := range dets {
		c := ColorFor(d.ClassID)
		rect := d.Box.ToRectangle()
		outline(dst, rect, c)
		text(dst, Label(d), rect.Min.X, rect.Min.Y, c)
	}
	if caption != "" {
		text(dst, caption, 0, 0, color.RGBA{A: 255})
	}
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	for t := 0; t < Thickness; t++ {
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y+t, r.Max.X, r.Min.Y+t+1),
			image.Rect(r.Min.X, r.Max.Y-t-1, r.Max.X, r.Max.Y-t),
			image.Rect(r.Min.X+t, r.Min.Y, r.Min.X+t+1, r.Max.Y),
			image.Rect(r.Max.X-t-1, r.Min.Y, r.Max.X-t, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
		}
	}
}

// text draws s on a filled background whose top-left corner is (x, y). The
// label moves inside the canvas when (x, y) is off-screen.
func text(dst *image.RGBA, s string, x, y int, background color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	height := face.Height

	b := dst.Bounds()
	x = clamp(x, b.Min.X, b.Max.X-width)
	y = clamp(y, b.Min.Y, b.Max.Y-height)

	box := image.Rect(x, y, x+width, y+height).Intersect(b)
	draw.Draw(dst, box, image.NewUniform(background), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
