package inference

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// StaticEngine replays fixed detection sets in rotation. It backs the demo
// mode and tests where no model is available.
type StaticEngine struct {
	// Delay simulates inference latency.
	Delay time.Duration

	mu     sync.Mutex
	sets   []postprocess.RawDetectionSet
	next   int
	closed bool
	stats  statsRecorder
}

// NewStaticEngine returns an engine that yields sets[0], sets[1], ... and then
// starts over. With no sets it yields empty results.
func NewStaticEngine(sets ...postprocess.RawDetectionSet) *StaticEngine {
	return &StaticEngine{sets: sets}
}

// Predict implements Engine. The thresholds are ignored.
func (s *StaticEngine) Predict(
	ctx context.Context,
	_ image.Image,
	_ Thresholds,
) (postprocess.RawDetectionSet, error) {
	start := time.Now()
	if err := sleep(ctx, s.Delay); err != nil {
		return postprocess.RawDetectionSet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return postprocess.RawDetectionSet{}, errors.New("engine is closed")
	}

	var out postprocess.RawDetectionSet
	if len(s.sets) > 0 {
		out = s.sets[s.next]
		s.next = (s.next + 1) % len(s.sets)
	}
	s.stats.record(time.Since(start))
	return out, nil
}

// Stats returns a snapshot of the replay timings.
func (s *StaticEngine) Stats() Stats {
	return s.stats.snapshot()
}

// Close implements Engine.
func (s *StaticEngine) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// StaticClassifier replays fixed score vectors in rotation.
type StaticClassifier struct {
	// Delay simulates inference latency.
	Delay time.Duration

	mu     sync.Mutex
	scores [][]float32
	next   int
	closed bool
	stats  statsRecorder
}

// NewStaticClassifier returns a classifier that yields scores[0], scores[1],
// ... and then starts over. With no vectors it yields empty scores.
func NewStaticClassifier(scores ...[]float32) *StaticClassifier {
	return &StaticClassifier{scores: scores}
}

// Classify implements Classifier.
func (s *StaticClassifier) Classify(ctx context.Context, _ image.Image) ([]float32, error) {
	start := time.Now()
	if err := sleep(ctx, s.Delay); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("classifier is closed")
	}

	var out []float32
	if len(s.scores) > 0 {
		out = s.scores[s.next]
		s.next = (s.next + 1) % len(s.scores)
	}
	s.stats.record(time.Since(start))
	return out, nil
}

// Stats returns a snapshot of the replay timings.
func (s *StaticClassifier) Stats() Stats {
	return s.stats.snapshot()
}

// Close implements Classifier.
func (s *StaticClassifier) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
