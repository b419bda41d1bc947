// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// Thresholds are forwarded to the model with every prediction.
type Thresholds struct {
	// IoU is the overlap above which the model suppresses a weaker box.
	IoU float32 `json:"iou" yaml:"iou"`
	// Confidence is the minimum score a box needs to be reported.
	Confidence float32 `json:"confidence" yaml:"confidence"`
}

// DefaultThresholds returns the thresholds the overlay uses out of the box.
func DefaultThresholds() Thresholds {
	return Thresholds{IoU: 0.5, Confidence: 0.3}
}

// Validate checks both thresholds lie in [0, 1].
func (t Thresholds) Validate() error {
	if !(t.IoU >= 0 && t.IoU <= 1) {
		return errors.Errorf("iou threshold must be in [0, 1], got %v", t.IoU)
	}
	if !(t.Confidence >= 0 && t.Confidence <= 1) {
		return errors.Errorf("confidence threshold must be in [0, 1], got %v", t.Confidence)
	}
	return nil
}

// Engine produces raw detections for one image.
type Engine interface {
	// Predict runs the model on img.
	//
	// Arguments:
	//   - ctx: Cancels the prediction before it starts.
	//   - img: The frame to analyze.
	//   - t: The thresholds forwarded to the model.
	//
	// Returns:
	//   - postprocess.RawDetectionSet: Boxes in normalized center form plus
	//     per-class scores.
	//   - error: If the model could not run.
	Predict(ctx context.Context, img image.Image, t Thresholds) (postprocess.RawDetectionSet, error)
	Close() error
}

// StatsProvider is implemented by engines and classifiers that time their own
// inference runs.
type StatsProvider interface {
	Stats() Stats
}

// Stats summarizes the inference work done by an engine.
type Stats struct {
	Inferences   int64
	LastDuration time.Duration
	TotalTime    time.Duration
}

// FPS is the rate implied by the most recent inference, 1/duration.
func (s Stats) FPS() float64 {
	if s.LastDuration <= 0 {
		return 0
	}
	return 1 / s.LastDuration.Seconds()
}

// AverageDuration is the mean time per inference.
func (s Stats) AverageDuration() time.Duration {
	if s.Inferences == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Inferences)
}

// statsRecorder accumulates Stats safely across goroutines.
type statsRecorder struct {
	mu    sync.RWMutex
	stats Stats
}

func (r *statsRecorder) record(d time.Duration) {
	r.mu.Lock()
	r.stats.Inferences++
	r.stats.LastDuration = d
	r.stats.TotalTime += d
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}
