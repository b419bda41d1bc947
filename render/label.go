// Package render - Draws detections over video frames.
package render

import (
	"fmt"
	"image/color"

	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// NothingDetected is the caption shown when a classifier has no result.
const NothingDetected = "Nothing is detected."

// Label is the text drawn next to a detection, e.g. "person: 0.87".
func Label(d postprocess.Detection) string {
	return fmt.Sprintf("%s: %.2f", d.ClassName, d.Confidence)
}

// FPSCaption formats a frame rate for the overlay corner, e.g. "fps: 12.3".
func FPSCaption(fps float64) string {
	return fmt.Sprintf("fps: %.1f", fps)
}

// ClassificationCaption formats the top class of a classifier.
//
// Arguments:
//   - c: The top class.
//   - ok: False when the classifier returned nothing.
//
// Returns:
//   - string: "identifier: confidence" or NothingDetected.
func ClassificationCaption(c postprocess.Classification, ok bool) string {
	if !ok {
		return NothingDetected
	}
	return fmt.Sprintf("%s: %.2f", c.Label, c.Confidence)
}

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// ColorFor returns a stable outline color for a class.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}
