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

// ONNXConfig describes the detector model and how to bind its tensors.
type ONNXConfig struct {
	// ModelPath is the .onnx file to load.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// InputWidth and InputHeight are the model input resolution.
	InputWidth  int `json:"input_width" yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`

	// InputName is the image input tensor.
	InputName string `json:"input_name" yaml:"input_name"`
	// IoUInputName and ConfidenceInputName name scalar threshold inputs.
	// Leave them empty for models that take only the image.
	IoUInputName        string `json:"iou_input_name" yaml:"iou_input_name"`
	ConfidenceInputName string `json:"confidence_input_name" yaml:"confidence_input_name"`
	// CoordinatesName is the [N,4] box output, ConfidenceName the [N,C] score output.
	CoordinatesName string `json:"coordinates_name" yaml:"coordinates_name"`
	ConfidenceName  string `json:"confidence_name" yaml:"confidence_name"`

	// ApplyNMS suppresses overlapping boxes on the Go side, for models exported
	// without a built-in NMS stage.
	ApplyNMS   bool `json:"apply_nms" yaml:"apply_nms"`
	ClassAware bool `json:"class_aware" yaml:"class_aware"`

	Provider providers.Config `json:"provider" yaml:"provider"`
}

// DefaultONNXConfig returns the tensor names of the exported YOLOv3 detector.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		InputWidth:          416,
		InputHeight:         416,
		InputName:           "image",
		IoUInputName:        "iouThreshold",
		ConfidenceInputName: "confidenceThreshold",
		CoordinatesName:     "coordinates",
		ConfidenceName:      "confidence",
		Provider:            providers.DefaultConfig(),
	}
}

// Validate checks the configuration is complete enough to open a session.
func (c ONNXConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.InputName == "" || c.CoordinatesName == "" || c.ConfidenceName == "" {
		return errors.New("input, coordinates and confidence tensor names are required")
	}
	return c.Provider.Validate()
}

// ONNXEngine runs a detector through ONNX Runtime.
type ONNXEngine struct {
	config  ONNXConfig
	logger  *zap.SugaredLogger
	session *ort.DynamicAdvancedSession

	// mu guards the preallocated input tensors.
	mu         sync.Mutex
	input      *ort.Tensor[float32]
	iou        *ort.Tensor[float32]
	confidence *ort.Tensor[float32]

	stats statsRecorder
}

// NewONNXEngine loads the model and prepares reusable input tensors.
//
// Arguments:
//   - config: The model and provider configuration.
//   - logger: Logger for lifecycle events. Nil disables logging.
//
// Returns:
//   - *ONNXEngine: A ready engine. Close it to release native resources.
//   - error: If the runtime or model cannot be loaded.
//
// Example:
//
// ```go
//
//	cfg := inference.DefaultONNXConfig()
//	cfg.ModelPath = "yolov3.onnx"
//	engine, err := inference.NewONNXEngine(cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
// ```
func NewONNXEngine(config ONNXConfig, logger *zap.SugaredLogger) (*ONNXEngine, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid onnx config")
	}
	if err := acquireEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	e := &ONNXEngine{config: config, logger: logger}
	if err := e.open(); err != nil {
		return nil, multierr.Append(err, multierr.Append(e.destroy(), releaseEnvironment()))
	}

	logger.Infow("onnx engine ready",
		"model", config.ModelPath,
		"provider", config.Provider.Backend,
		"input", config.InputName,
		"width", config.InputWidth,
		"height", config.InputHeight,
		"nms", config.ApplyNMS,
	)
	return e, nil
}

func (e *ONNXEngine) open() error {
	var err error
	e.input, err = ort.NewEmptyTensor[float32](
		ort.NewShape(1, 3, int64(e.config.InputHeight), int64(e.config.InputWidth)),
	)
	if err != nil {
		return errors.Wrap(err, "creating input tensor")
	}

	inputNames := []string{e.config.InputName}
	if e.config.IoUInputName != "" {
		if e.iou, err = ort.NewEmptyTensor[float32](ort.NewShape(1)); err != nil {
			return errors.Wrap(err, "creating iou threshold tensor")
		}
		inputNames = append(inputNames, e.config.IoUInputName)
	}
	if e.config.ConfidenceInputName != "" {
		if e.confidence, err = ort.NewEmptyTensor[float32](ort.NewShape(1)); err != nil {
			return errors.Wrap(err, "creating confidence threshold tensor")
		}
		inputNames = append(inputNames, e.config.ConfidenceInputName)
	}

	e.session, err = newSession(
		e.config.ModelPath,
		inputNames,
		[]string{e.config.CoordinatesName, e.config.ConfidenceName},
		e.config.Provider,
	)
	return err
}

// newSession opens a dynamic session with the provider's options applied.
func newSession(modelPath string, inputs, outputs []string, provider providers.Config) (*ort.DynamicAdvancedSession, error) {
	options, err := providers.NewSessionOptions(provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputs, outputs, options)
	if err != nil {
		return nil, errors.Wrapf(err, "creating session for %s", modelPath)
	}
	return session, nil
}

// Predict implements Engine.
func (e *ONNXEngine) Predict(
	ctx context.Context,
	img image.Image,
	t Thresholds,
) (postprocess.RawDetectionSet, error) {
	if err := ctx.Err(); err != nil {
		return postprocess.RawDetectionSet{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return postprocess.RawDetectionSet{}, errors.New("engine is closed")
	}

	start := time.Now()
	if err := PrepareInput(img, e.input.GetData(), e.config.InputWidth, e.config.InputHeight); err != nil {
		return postprocess.RawDetectionSet{}, errors.Wrap(err, "preparing input")
	}

	inputs := []ort.Value{e.input}
	if e.iou != nil {
		e.iou.GetData()[0] = t.IoU
		inputs = append(inputs, e.iou)
	}
	if e.confidence != nil {
		e.confidence.GetData()[0] = t.Confidence
		inputs = append(inputs, e.confidence)
	}

	outputs := []ort.Value{nil, nil}
	if err := e.session.Run(inputs, outputs); err != nil {
		return postprocess.RawDetectionSet{}, errors.Wrap(err, "running session")
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	raw, err := decodeOutputs(outputs[0], outputs[1])
	if err != nil {
		return postprocess.RawDetectionSet{}, err
	}

	if e.config.ApplyNMS {
		raw = postprocess.Suppress(raw, postprocess.NMSConfig{
			IoUThreshold:        t.IoU,
			ConfidenceThreshold: t.Confidence,
			ClassAware:          e.config.ClassAware,
		})
	}

	e.stats.record(time.Since(start))
	return raw, nil
}

// Stats returns a snapshot of the inference timings.
func (e *ONNXEngine) Stats() Stats {
	return e.stats.snapshot()
}

// Close releases the session and tensors. It is safe to call more than once.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil && e.input == nil {
		return nil
	}
	err := multierr.Append(e.destroy(), releaseEnvironment())
	e.logger.Infow("onnx engine closed", "model", e.config.ModelPath, "inferences", e.stats.snapshot().Inferences)
	return err
}

func (e *ONNXEngine) destroy() error {
	var err error
	if e.session != nil {
		err = multierr.Append(err, e.session.Destroy())
		e.session = nil
	}
	for _, t := range []**ort.Tensor[float32]{&e.input, &e.iou, &e.confidence} {
		if *t != nil {
			err = multierr.Append(err, (*t).Destroy())
			*t = nil
		}
	}
	return err
}

// decodeOutputs turns the coordinates and confidence outputs into a raw set.
func decodeOutputs(coords, confs ort.Value) (postprocess.RawDetectionSet, error) {
	ct, err := float32Output(coords, "coordinates")
	if err != nil {
		return postprocess.RawDetectionSet{}, err
	}
	st, err := float32Output(confs, "confidence")
	if err != nil {
		return postprocess.RawDetectionSet{}, err
	}
	return postprocess.FromBuffers(ct.GetData(), dims(ct.GetShape()), st.GetData(), dims(st.GetShape()))
}

func float32Output(v ort.Value, name string) (*ort.Tensor[float32], error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "%s output is %T, want float32 tensor", name, v)
	}
	return t, nil
}

// dims converts a runtime shape to tensor dimensions.
func dims(shape ort.Shape) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}
