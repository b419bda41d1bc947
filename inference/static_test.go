package inference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-overlay/models/postprocess"
)

func TestStaticEngine_Rotates(t *testing.T) {
	a := postprocess.RawDetectionSet{
		Coordinates: []postprocess.Box{{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}},
		Confidences: [][]float32{{0.9}},
	}
	b := postprocess.RawDetectionSet{}
	engine := NewStaticEngine(a, b)

	for _, want := range []postprocess.RawDetectionSet{a, b, a} {
		got, err := engine.Predict(context.Background(), nil, DefaultThresholds())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(3), engine.Stats().Inferences)
}

func TestStaticEngine_Empty(t *testing.T) {
	got, err := NewStaticEngine().Predict(context.Background(), nil, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestStaticEngine_CancelledDuringDelay(t *testing.T) {
	engine := NewStaticEngine()
	engine.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Predict(ctx, nil, DefaultThresholds())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticEngine_Closed(t *testing.T) {
	engine := NewStaticEngine()
	require.NoError(t, engine.Close())

	_, err := engine.Predict(context.Background(), nil, DefaultThresholds())
	assert.Error(t, err)
}

func TestStaticClassifier_Rotates(t *testing.T) {
	a := []float32{0.1, 0.9}
	b := []float32{0.6, 0.4}
	classifier := NewStaticClassifier(a, b)
	classifier.Delay = time.Millisecond

	for _, want := range [][]float32{a, b, a} {
		got, err := classifier.Classify(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	s := classifier.Stats()
	assert.Equal(t, int64(3), s.Inferences)
	assert.GreaterOrEqual(t, s.AverageDuration(), time.Millisecond)
	assert.Greater(t, s.FPS(), 0.0)
}

func TestStaticClassifier_EmptyAndClosed(t *testing.T) {
	classifier := NewStaticClassifier()

	got, err := classifier.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, classifier.Close())
	_, err = classifier.Classify(context.Background(), nil)
	assert.Error(t, err)
}

func TestClassifierConfig_Validate(t *testing.T) {
	cfg := DefaultClassifierConfig()
	assert.Error(t, cfg.Validate(), "model path is required")

	cfg.ModelPath = "mobilenet.onnx"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.OutputName = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Provider.Backend = "tpu"
	assert.Error(t, bad.Validate())
}

func TestNewONNXClassifier_InvalidConfig(t *testing.T) {
	_, err := NewONNXClassifier(ClassifierConfig{}, nil)
	assert.Error(t, err)
}

var (
	_ Engine        = (*StaticEngine)(nil)
	_ Engine        = (*ONNXEngine)(nil)
	_ Classifier    = (*StaticClassifier)(nil)
	_ Classifier    = (*ONNXClassifier)(nil)
	_ StatsProvider = (*StaticEngine)(nil)
	_ StatsProvider = (*ONNXEngine)(nil)
	_ StatsProvider = (*StaticClassifier)(nil)
	_ StatsProvider = (*ONNXClassifier)(nil)
)
