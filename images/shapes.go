// Package images - Geometry and image utilities shared by the detection overlay.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Rect is a top-left anchored rectangle. Depending on context the values are
// either normalized ([0,1] of the image) or pixels.
type Rect struct {
	X, Y          float32
	Width, Height float32
}

// MaxX returns the right edge of the rectangle.
func (r Rect) MaxX() float32 { return r.X + r.Width }

// MaxY returns the bottom edge of the rectangle.
func (r Rect) MaxY() float32 { return r.Y + r.Height }

// MidX returns the horizontal center of the rectangle.
func (r Rect) MidX() float32 { return r.X + r.Width/2 }

// MidY returns the vertical center of the rectangle.
func (r Rect) MidY() float32 { return r.Y + r.Height/2 }

// Area returns the area of the rectangle. Degenerate rectangles have zero area.
func (r Rect) Area() float32 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// ToRectangle converts the rectangle to an image.Rectangle.
//
// This loses the fractional part of every edge, which is fine for drawing.
//
// Returns:
//   - image.Rectangle: The canonical integer rectangle.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.MaxX()), int(r.MaxY())).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f) %.2fx%.2f", r.X, r.Y, r.Width, r.Height)
}

// ErrInvalidViewSize is returned when a view has a non-positive dimension.
var ErrInvalidViewSize = errors.New("view size must have positive width and height")

// ViewSize is the size of the surface detections are drawn on, in pixels.
type ViewSize struct {
	Width  float32 `json:"width"  yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Validate checks that both dimensions are strictly positive.
func (v ViewSize) Validate() error {
	if !(v.Width > 0) || !(v.Height > 0) {
		return errors.Wrapf(ErrInvalidViewSize, "got %gx%g", v.Width, v.Height)
	}
	return nil
}

// ViewSizeOf returns the size of an image's bounds.
func ViewSizeOf(b image.Rectangle) ViewSize {
	return ViewSize{Width: float32(b.Dx()), Height: float32(b.Dy())}
}

// Origin is the vertical origin convention of a model's coordinates.
type Origin string

const (
	// OriginBottomLeft means y grows upwards from the bottom of the image.
	// YOLOv3 exports for CoreML emit this convention.
	OriginBottomLeft Origin = "bottom-left"
	// OriginTopLeft means y grows downwards, the same as screen space.
	OriginTopLeft Origin = "top-left"
)

// ParseOrigin parses an origin convention name. An empty string selects
// OriginBottomLeft.
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case "", OriginBottomLeft:
		return OriginBottomLeft, nil
	case OriginTopLeft:
		return OriginTopLeft, nil
	default:
		return "", errors.Errorf("unknown origin convention %q", s)
	}
}

// CenterToRect converts a normalized center box to a normalized top-left
// rectangle in screen orientation.
//
// Arguments:
//   - cx, cy: The normalized box center.
//   - w, h: The normalized box size.
//   - origin: The vertical convention the center was expressed in.
//
// Returns:
//   - Rect: The normalized rectangle with a top-left origin.
//
// Example:
//
// ```go
//
//	r := CenterToRect(0.5, 0.5, 0.2, 0.2, OriginBottomLeft)
//	// r == Rect{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2}
//
// ```
func CenterToRect(cx, cy, w, h float32, origin Origin) Rect {
	y := cy - h/2
	if origin != OriginTopLeft {
		y = 1 - cy - h/2
	}
	return Rect{X: cx - w/2, Y: y, Width: w, Height: h}
}

// ImageRectForNormalizedRect projects a normalized rectangle onto an image of
// the given size. Every component is scaled by the matching dimension and
// nothing is clamped, so boxes that spill over the frame edge keep their
// out-of-bounds extent.
func ImageRectForNormalizedRect(r Rect, width, height float32) Rect {
	return Rect{
		X:      r.X * width,
		Y:      r.Y * height,
		Width:  r.Width * width,
		Height: r.Height * height,
	}
}

// CalculateIoU returns the intersection over union of two rectangles.
//
// The intersection corners are the max of the top-left corners and the min
// of the bottom-right corners. Disjoint or degenerate rectangles score 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example:
//
// ```go
//
//	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
//	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X, o.X)
	iy1 := math32.Max(r.Y, o.Y)
	ix2 := math32.Min(r.MaxX(), o.MaxX())
	iy2 := math32.Min(r.MaxY(), o.MaxY())

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}
