// Package config - YAML configuration for the overlay.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/inference"
	"github.com/nvr-ai/go-overlay/models"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// Task selects what the model does with each frame.
type Task string

const (
	// TaskDetect draws a labelled box per detected object.
	TaskDetect Task = "detect"
	// TaskClassify captions the frame with its top class.
	TaskClassify Task = "classify"
)

// Config is the full overlay configuration.
type Config struct {
	Log         LogConfig                  `json:"log"         yaml:"log"`
	Task        Task                       `json:"task"        yaml:"task"`
	Model       inference.ONNXConfig       `json:"model"       yaml:"model"`
	Classifier  inference.ClassifierConfig `json:"classifier"  yaml:"classifier"`
	Labels      LabelsConfig         `json:"labels"      yaml:"labels"`
	Thresholds  inference.Thresholds `json:"thresholds"  yaml:"thresholds"`
	Postprocess PostprocessConfig    `json:"postprocess" yaml:"postprocess"`
	Capture     CaptureConfig        `json:"capture"     yaml:"capture"`
	Output      OutputConfig         `json:"output"      yaml:"output"`
}

// LogConfig selects the logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level       string `json:"level"       yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// LabelsConfig selects the class names.
type LabelsConfig struct {
	// Family picks a built-in table when Path is empty.
	Family models.ModelFamily `json:"family" yaml:"family"`
	// Path is a labels file, one name per line.
	Path string `json:"path" yaml:"path"`
}

// PostprocessConfig controls coordinate conversion and detection filters.
type PostprocessConfig struct {
	Origin images.Origin `json:"origin" yaml:"origin"`
	// MinScore and MinArea drop weak or tiny detections after conversion.
	MinScore float32 `json:"min_score" yaml:"min_score"`
	MinArea  float32 `json:"min_area"  yaml:"min_area"`
	// Classes keeps only the named classes. Empty keeps all.
	Classes []string `json:"classes" yaml:"classes"`
}

// CaptureConfig selects the frame source. Video wins over Frames, which
// wins over the camera.
type CaptureConfig struct {
	Device     int                   `json:"device"     yaml:"device"`
	Resolution images.ResolutionType `json:"resolution" yaml:"resolution"`
	FPS        int                   `json:"fps"        yaml:"fps"`
	Video      string                `json:"video"      yaml:"video"`
	Frames     string                `json:"frames"     yaml:"frames"`
}

// OutputConfig controls where rendered frames go.
type OutputConfig struct {
	ShowWindow  bool   `json:"show_window"  yaml:"show_window"`
	WindowTitle string `json:"window_title" yaml:"window_title"`
	// Dir receives rendered frames as PNG when no window is shown.
	Dir            string        `json:"dir"             yaml:"dir"`
	ReportInterval time.Duration `json:"report_interval" yaml:"report_interval"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	model := inference.DefaultONNXConfig()
	model.ModelPath = "yolov3.onnx"

	classifier := inference.DefaultClassifierConfig()
	classifier.ModelPath = "mobilenet.onnx"

	return Config{
		Log:        LogConfig{Level: "info"},
		Task:       TaskDetect,
		Model:      model,
		Classifier: classifier,
		Labels:     LabelsConfig{Family: models.ModelFamilyYOLO},
		Thresholds: inference.DefaultThresholds(),
		Postprocess: PostprocessConfig{
			Origin: images.OriginBottomLeft,
		},
		Capture: CaptureConfig{
			Resolution: images.ResolutionTypeHD720p,
			FPS:        30,
		},
		Output: OutputConfig{
			WindowTitle:    "overlay",
			ReportInterval: 5 * time.Second,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Unknown keys are errors.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged, validated configuration.
//   - error: If the file cannot be read, parsed or validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "parsing config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Task != TaskDetect && c.Task != TaskClassify {
		return errors.Errorf("task must be %q or %q, got %q", TaskDetect, TaskClassify, c.Task)
	}
	if err := c.Model.Provider.Validate(); err != nil {
		return errors.Wrap(err, "model.provider")
	}
	if err := c.Classifier.Provider.Validate(); err != nil {
		return errors.Wrap(err, "classifier.provider")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return errors.Wrap(err, "thresholds")
	}
	if _, err := images.ParseOrigin(string(c.Postprocess.Origin)); err != nil {
		return errors.Wrap(err, "postprocess.origin")
	}
	if c.Postprocess.MinScore < 0 || c.Postprocess.MinScore > 1 {
		return errors.Errorf("postprocess.min_score must be in [0, 1], got %v", c.Postprocess.MinScore)
	}
	if c.Postprocess.MinArea < 0 {
		return errors.Errorf("postprocess.min_area must be >= 0, got %v", c.Postprocess.MinArea)
	}
	if c.Labels.Path == "" {
		if _, err := models.LabelTableFor(c.Labels.Family); err != nil {
			return errors.Wrap(err, "labels")
		}
	}
	if _, ok := images.GetResolutionByType(c.Capture.Resolution); !ok {
		return errors.Errorf("capture.resolution %q is not a known preset", c.Capture.Resolution)
	}
	if c.Capture.Device < 0 || c.Capture.FPS < 0 {
		return errors.New("capture.device and capture.fps must be >= 0")
	}
	if c.Output.ReportInterval < 0 {
		return errors.New("output.report_interval must be >= 0")
	}
	return nil
}

// LoadLabels builds the label table the config selects.
func (c LabelsConfig) LoadLabels() (*models.LabelTable, error) {
	if c.Path != "" {
		family := c.Family
		if family == "" {
			family = models.ModelFamilyCustom
		}
		return models.LoadLabelFile(family, c.Path)
	}
	return models.LabelTableFor(c.Family)
}

// Filter builds the post-processing filter chain.
func (c PostprocessConfig) Filter() postprocess.Postprocessor {
	var filters []postprocess.Postprocessor
	if c.MinScore > 0 {
		filters = append(filters, postprocess.NewScoreFilter(c.MinScore))
	}
	if c.MinArea > 0 {
		filters = append(filters, postprocess.NewAreaFilter(c.MinArea))
	}
	if len(c.Classes) > 0 {
		filters = append(filters, postprocess.NewLabelFilter(c.Classes...))
	}
	return postprocess.Chain(filters...)
}
