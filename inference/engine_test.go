package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{IoU: 0, Confidence: 1}.Validate())
	assert.Error(t, Thresholds{IoU: 1.5, Confidence: 0.3}.Validate())
	assert.Error(t, Thresholds{IoU: 0.5, Confidence: -0.1}.Validate())
}

func TestDefaultThresholds(t *testing.T) {
	assert.Equal(t, Thresholds{IoU: 0.5, Confidence: 0.3}, DefaultThresholds())
}

func TestStats(t *testing.T) {
	var r statsRecorder
	assert.Zero(t, r.snapshot().FPS())
	assert.Zero(t, r.snapshot().AverageDuration())

	r.record(100 * time.Millisecond)
	r.record(50 * time.Millisecond)

	s := r.snapshot()
	assert.Equal(t, int64(2), s.Inferences)
	assert.Equal(t, 50*time.Millisecond, s.LastDuration)
	assert.Equal(t, 75*time.Millisecond, s.AverageDuration())
	assert.InDelta(t, 20.0, s.FPS(), 1e-9)
}
