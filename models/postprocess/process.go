package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/models"
)

type options struct {
	origin images.Origin
}

// Option configures Process.
type Option func(*options)

// WithOrigin selects the vertical convention of the raw coordinates. The
// default is images.OriginBottomLeft.
func WithOrigin(o images.Origin) Option {
	return func(opts *options) {
		opts.origin = o
	}
}

// Process converts a raw detection set into one Detection per record.
//
// Each record's normalized center box is turned into a top-left rectangle,
// projected onto the view and paired with the best scoring class. Output
// order mirrors input order. Nothing is filtered, sorted or suppressed here;
// thresholds and NMS belong to the inference stage.
//
// Arguments:
//   - raw: The [N,4] coordinates and [N,C] confidences.
//   - labels: The C class names. A LabelTable holds at least one class, so
//     C >= 1 and a nil table is reported as ErrShapeMismatch.
//   - view: The target surface size in pixels.
//   - opts: Optional conventions, see WithOrigin.
//
// Returns:
//   - []Detection: N detections, or nil on error.
//   - error: ErrShapeMismatch or ErrInvalidGeometry (wrapped).
//
// Example:
//
// ```go
//
//	raw := RawDetectionSet{
//	    Coordinates: []Box{{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}},
//	    Confidences: [][]float32{scores},
//	}
//	dets, err := Process(raw, models.COCO80, images.ViewSize{Width: 100, Height: 200})
//	// dets[0].Box == images.Rect{X: 40, Y: 80, Width: 20, Height: 40}
//
// ```
func Process(
	raw RawDetectionSet,
	labels *models.LabelTable,
	view images.ViewSize,
	opts ...Option,
) ([]Detection, error) {
	cfg := options{origin: images.OriginBottomLeft}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := Validate(raw, labels); err != nil {
		return nil, err
	}
	if err := view.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidGeometry, err.Error())
	}

	detections := make([]Detection, len(raw.Coordinates))
	for i, c := range raw.Coordinates {
		normalized := images.CenterToRect(c.CX, c.CY, c.W, c.H, cfg.origin)

		classID, confidence := Argmax(raw.Confidences[i])
		// Validate guarantees the index is in range.
		name, _ := labels.Name(classID)

		detections[i] = Detection{
			ClassID:    classID,
			ClassName:  name,
			Confidence: confidence,
			Box:        images.ImageRectForNormalizedRect(normalized, view.Width, view.Height),
		}
	}
	return detections, nil
}

// Validate checks the shape invariants of a raw detection set against a
// label table without building any output.
func Validate(raw RawDetectionSet, labels *models.LabelTable) error {
	if labels == nil {
		return errors.Wrap(ErrShapeMismatch, "label table is nil")
	}
	if len(raw.Coordinates) != len(raw.Confidences) {
		return errors.Wrapf(ErrShapeMismatch, "%d coordinate records but %d confidence records",
			len(raw.Coordinates), len(raw.Confidences))
	}
	for i, scores := range raw.Confidences {
		if len(scores) != labels.Len() {
			return errors.Wrapf(ErrShapeMismatch, "confidence record %d has %d scores, want %d",
				i, len(scores), labels.Len())
		}
	}
	return nil
}

// Argmax returns the index and value of the largest score. Ties resolve to
// the lowest index. An empty slice returns (-1, 0).
func Argmax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	best, bestScore := 0, scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > bestScore {
			best, bestScore = i, scores[i]
		}
	}
	return best, bestScore
}

// TopClass returns the best class of a classification score vector.
//
// Returns:
//   - Classification: The winning class.
//   - bool: False when scores is empty (nothing detected).
//   - error: ErrShapeMismatch if scores and labels disagree in length.
func TopClass(scores []float32, labels *models.LabelTable) (Classification, bool, error) {
	if len(scores) == 0 {
		return Classification{}, false, nil
	}
	if labels == nil || len(scores) != labels.Len() {
		n := 0
		if labels != nil {
			n = labels.Len()
		}
		return Classification{}, false, errors.Wrapf(ErrShapeMismatch, "%d scores for %d labels", len(scores), n)
	}
	idx, score := Argmax(scores)
	name, _ := labels.Name(idx)
	return Classification{ClassID: idx, Label: name, Confidence: score}, true, nil
}
