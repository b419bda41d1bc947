package inference

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-overlay/inference/providers"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// Classifier scores a whole image against every class of a label table.
type Classifier interface {
	// Classify runs the model on img.
	//
	// Returns:
	//   - []float32: One score per class. Empty when the model has no answer.
	//   - error: If the model could not run.
	Classify(ctx context.Context, img image.Image) ([]float32, error)
	Close() error
}

// ClassifierConfig describes an image classification model.
type ClassifierConfig struct {
	// ModelPath is the .onnx file to load.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	InputWidth  int    `json:"input_width"  yaml:"input_width"`
	InputHeight int    `json:"input_height" yaml:"input_height"`
	InputName   string `json:"input_name"   yaml:"input_name"`
	// OutputName is the [C] or [1,C] score output.
	OutputName string `json:"output_name" yaml:"output_name"`
	// Softmax converts raw logits into probabilities.
	Softmax bool `json:"softmax" yaml:"softmax"`

	Provider providers.Config `json:"provider" yaml:"provider"`
}

// DefaultClassifierConfig returns the tensor names of an exported MobileNet.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		InputWidth:  224,
		InputHeight: 224,
		InputName:   "image",
		OutputName:  "classLabelProbs",
		Provider:    providers.DefaultConfig(),
	}
}

// Validate checks the configuration is complete enough to open a session.
func (c ClassifierConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.InputName == "" || c.OutputName == "" {
		return errors.New("input and output tensor names are required")
	}
	return c.Provider.Validate()
}

// ONNXClassifier runs an image classifier through ONNX Runtime.
type ONNXClassifier struct {
	config  ClassifierConfig
	logger  *zap.SugaredLogger
	session *ort.DynamicAdvancedSession

	mu    sync.Mutex
	input *ort.Tensor[float32]

	stats statsRecorder
}

// NewONNXClassifier loads the model and prepares a reusable input tensor.
func NewONNXClassifier(config ClassifierConfig, logger *zap.SugaredLogger) (*ONNXClassifier, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid classifier config")
	}
	if err := acquireEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	c := &ONNXClassifier{config: config, logger: logger}
	if err := c.open(); err != nil {
		return nil, multierr.Append(err, multierr.Append(c.destroy(), releaseEnvironment()))
	}

	logger.Infow("onnx classifier ready",
		"model", config.ModelPath,
		"provider", config.Provider.Backend,
		"width", config.InputWidth,
		"height", config.InputHeight,
	)
	return c, nil
}

func (c *ONNXClassifier) open() error {
	var err error
	c.input, err = ort.NewEmptyTensor[float32](
		ort.NewShape(1, 3, int64(c.config.InputHeight), int64(c.config.InputWidth)),
	)
	if err != nil {
		return errors.Wrap(err, "creating input tensor")
	}
	c.session, err = newSession(
		c.config.ModelPath,
		[]string{c.config.InputName},
		[]string{c.config.OutputName},
		c.config.Provider,
	)
	return err
}

// Classify implements Classifier.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.New("classifier is closed")
	}

	start := time.Now()
	if err := PrepareInput(img, c.input.GetData(), c.config.InputWidth, c.config.InputHeight); err != nil {
		return nil, errors.Wrap(err, "preparing input")
	}

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{c.input}, outputs); err != nil {
		return nil, errors.Wrap(err, "running session")
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	out, err := float32Output(outputs[0], "score")
	if err != nil {
		return nil, err
	}
	scores, err := postprocess.ScoresFromBuffer(out.GetData(), dims(out.GetShape()))
	if err != nil {
		return nil, err
	}
	if c.config.Softmax {
		scores = postprocess.Softmax(scores)
	}

	c.stats.record(time.Since(start))
	return scores, nil
}

// Stats returns a snapshot of the inference timings.
func (c *ONNXClassifier) Stats() Stats {
	return c.stats.snapshot()
}

// Close releases the session and tensor. It is safe to call more than once.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil && c.input == nil {
		return nil
	}
	err := multierr.Append(c.destroy(), releaseEnvironment())
	c.logger.Infow("onnx classifier closed", "model", c.config.ModelPath, "inferences", c.stats.snapshot().Inferences)
	return err
}

func (c *ONNXClassifier) destroy() error {
	var err error
	if c.session != nil {
		err = multierr.Append(err, c.session.Destroy())
		c.session = nil
	}
	if c.input != nil {
		err = multierr.Append(err, c.input.Destroy())
		c.input = nil
	}
	return err
}
