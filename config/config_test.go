package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/inference/providers"
	"github.com/nvr-ai/go-overlay/models"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(0.5), cfg.Thresholds.IoU)
	assert.Equal(t, float32(0.3), cfg.Thresholds.Confidence)
	assert.Equal(t, images.OriginBottomLeft, cfg.Postprocess.Origin)
	assert.Equal(t, 416, cfg.Model.InputWidth)
	assert.Equal(t, "coordinates", cfg.Model.CoordinatesName)
	assert.Equal(t, images.ResolutionTypeHD720p, cfg.Capture.Resolution)
	assert.Equal(t, providers.CPUProviderBackend, cfg.Model.Provider.Backend)
	assert.Equal(t, TaskDetect, cfg.Task)
	assert.Equal(t, 224, cfg.Classifier.InputWidth)
}

func TestValidate_Provider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Provider.Backend = "tpu"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.provider")
	assert.Contains(t, err.Error(), `"tpu"`)

	cfg.Model.Provider.Backend = providers.OpenVINOProviderBackend
	assert.NoError(t, cfg.Validate())
}

func TestParse_ClassifyTask(t *testing.T) {
	cfg, err := Parse([]byte(`
task: classify
classifier:
  model_path: squeezenet.onnx
  output_name: softmaxout_1
  softmax: true
labels:
  path: ""
`))
	require.NoError(t, err)

	assert.Equal(t, TaskClassify, cfg.Task)
	assert.Equal(t, "squeezenet.onnx", cfg.Classifier.ModelPath)
	assert.Equal(t, "softmaxout_1", cfg.Classifier.OutputName)
	assert.True(t, cfg.Classifier.Softmax)
	assert.Equal(t, "image", cfg.Classifier.InputName, "untouched keys keep defaults")
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
thresholds:
  confidence: 0.6
postprocess:
  origin: top-left
  classes: [person, car]
model:
  model_path: detector.onnx
  apply_nms: true
  provider:
    backend: cuda
    options:
      arena_extend_strategy: kSameAsRequested
capture:
  resolution: VGA
output:
  report_interval: 10s
`))
	require.NoError(t, err)

	assert.Equal(t, float32(0.6), cfg.Thresholds.Confidence)
	assert.Equal(t, float32(0.5), cfg.Thresholds.IoU, "untouched keys keep defaults")
	assert.Equal(t, images.OriginTopLeft, cfg.Postprocess.Origin)
	assert.Equal(t, []string{"person", "car"}, cfg.Postprocess.Classes)
	assert.Equal(t, "detector.onnx", cfg.Model.ModelPath)
	assert.True(t, cfg.Model.ApplyNMS)
	assert.Equal(t, "image", cfg.Model.InputName)
	assert.Equal(t, providers.CUDAProviderBackend, cfg.Model.Provider.Backend)
	assert.Equal(t, "kSameAsRequested", cfg.Model.Provider.Options["arena_extend_strategy"])
	assert.Equal(t, images.ResolutionTypeVGA, cfg.Capture.Resolution)
	assert.Equal(t, 10*time.Second, cfg.Output.ReportInterval)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "thresholds:\n  iuo: 0.5\n"},
		{"iou out of range", "thresholds:\n  iou: 1.5\n"},
		{"bad origin", "postprocess:\n  origin: center\n"},
		{"bad resolution", "capture:\n  resolution: 8K\n"},
		{"bad provider", "model:\n  provider:\n    backend: tpu\n"},
		{"bad classifier provider", "classifier:\n  provider:\n    backend: tpu\n"},
		{"negative device id", "model:\n  provider:\n    device_id: -1\n"},
		{"unknown task", "task: segment\n"},
		{"unknown label family", "labels:\n  family: imagenet\n"},
		{"negative area", "postprocess:\n  min_area: -1\n"},
		{"not yaml", "thresholds: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLabelsConfig_LoadLabels(t *testing.T) {
	table, err := LabelsConfig{Family: models.ModelFamilyYOLO}.LoadLabels()
	require.NoError(t, err)
	assert.Equal(t, 80, table.Len())

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ndog\n"), 0o600))

	table, err = LabelsConfig{Path: path}.LoadLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, table.Names())
	assert.Equal(t, models.ModelFamilyCustom, table.Family())
}

func TestPostprocessConfig_Filter(t *testing.T) {
	dets := []postprocess.Detection{
		{ClassName: "person", Confidence: 0.9, Box: images.Rect{Width: 10, Height: 10}},
		{ClassName: "car", Confidence: 0.9, Box: images.Rect{Width: 1, Height: 1}},
		{ClassName: "dog", Confidence: 0.1, Box: images.Rect{Width: 10, Height: 10}},
	}

	assert.Len(t, PostprocessConfig{}.Filter()(dets), 3)

	out := PostprocessConfig{MinScore: 0.5, MinArea: 50, Classes: []string{"person", "dog"}}.Filter()(dets)
	require.Len(t, out, 1)
	assert.Equal(t, "person", out[0].ClassName)
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Development: true}.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}
