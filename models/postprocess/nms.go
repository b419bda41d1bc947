// Package postprocess - Host-side Non-Maximum Suppression for models without an NMS stage.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-overlay/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the weaker box is suppressed.
	IoUThreshold float32 `json:"iou_threshold"        yaml:"iou_threshold"`
	// ConfidenceThreshold drops records whose best score is below it.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// ClassAware restricts suppression to boxes of the same best class.
	ClassAware bool `json:"class_aware"          yaml:"class_aware"`
}

// Suppress applies a confidence filter and greedy NMS to a raw detection set.
//
// Records are ranked by their best score, highest first, with ties kept in
// input order. Overlap is measured on the normalized boxes, so the result
// does not depend on the view size. The returned set shares score slices with
// the input.
//
// Arguments:
//   - raw: The unfiltered detector output. Must satisfy the shape invariant.
//   - config: Thresholds for the filter and the suppression.
//
// Returns:
//   - RawDetectionSet: The surviving records, ordered by descending score.
func Suppress(raw RawDetectionSet, config NMSConfig) RawDetectionSet {
	type candidate struct {
		index int
		class int
		score float32
		box   images.Rect
	}

	n := len(raw.Coordinates)
	if len(raw.Confidences) < n {
		n = len(raw.Confidences)
	}

	candidates := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		class, score := Argmax(raw.Confidences[i])
		if class < 0 || score < config.ConfidenceThreshold {
			continue
		}
		c := raw.Coordinates[i]
		candidates = append(candidates, candidate{
			index: i,
			class: class,
			score: score,
			// the origin does not change overlap, any convention works
			box: images.CenterToRect(c.CX, c.CY, c.W, c.H, images.OriginTopLeft),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := RawDetectionSet{
		Coordinates: make([]Box, 0, len(candidates)),
		Confidences: make([][]float32, 0, len(candidates)),
	}
	used := make([]bool, len(candidates))
	for i := range candidates {
		if used[i] {
			continue
		}
		anchor := candidates[i]
		out.Coordinates = append(out.Coordinates, raw.Coordinates[anchor.index])
		out.Confidences = append(out.Confidences, raw.Confidences[anchor.index])

		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && candidates[j].class != anchor.class {
				continue
			}
			if images.CalculateIoU(anchor.box, candidates[j].box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}
	return out
}
