// Package postprocess - Turns raw detector output into labelled screen-space boxes.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-overlay/images"
)

// Box is one normalized center box emitted by a detector.
type Box struct {
	CX, CY float32
	W, H   float32
}

// RawDetectionSet is the raw output of one inference pass: N boxes and N
// per-class confidence vectors of length C.
type RawDetectionSet struct {
	// Coordinates holds the [N,4] box records.
	Coordinates []Box
	// Confidences holds the [N,C] score records.
	Confidences [][]float32
}

// Len returns N, the number of coordinate records.
func (r RawDetectionSet) Len() int { return len(r.Coordinates) }

// Detection is a single labelled box in screen pixels.
type Detection struct {
	// ClassID is the index of the best class, in [0,C).
	ClassID int
	// ClassName is the label of ClassID.
	ClassName string
	// Confidence is the score of ClassID.
	Confidence float32
	// Box is the rectangle in screen pixel coordinates.
	Box images.Rect
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.ClassName, d.Confidence, d.Box)
}

// Classification is the top class of a classification model.
type Classification struct {
	ClassID    int
	Label      string
	Confidence float32
}
