// Package providers - ONNX Runtime execution provider selection.
package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA.
	CUDAProviderBackend ProviderBackend = "cuda"
	// OpenVINOProviderBackend uses Intel OpenVINO.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// ErrUnsupportedBackend reports an execution provider this package cannot enable.
var ErrUnsupportedBackend = errors.New("unsupported execution provider")

// Config selects and tunes the execution provider of a session.
type Config struct {
	// Backend specifies the backend to use
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// DeviceID is the accelerator index for CUDA and the CoreML flags word.
	DeviceID int `json:"device_id" yaml:"device_id"`

	// Options contains provider-specific key/value options, passed through
	// unchanged to CUDA and OpenVINO.
	// See: https://onnxruntime.ai/docs/execution-providers/
	Options map[string]string `json:"options" yaml:"options"`

	// IntraOpNumThreads is the thread count inside a node. 0 lets ORT decide.
	IntraOpNumThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`

	// InterOpNumThreads is the thread count across nodes. 0 lets ORT decide.
	InterOpNumThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultConfig returns a CPU configuration with ORT-chosen threading.
func DefaultConfig() Config {
	return Config{Backend: CPUProviderBackend}
}

// Validate checks that the backend is known and thread counts are sane.
func (c Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.DeviceID < 0 {
		return errors.Errorf("device_id must be >= 0, got %d", c.DeviceID)
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must be >= 0")
	}
	return nil
}

// ParseBackend parses a backend name. An empty name selects the CPU backend.
func ParseBackend(s string) (ProviderBackend, error) {
	switch ProviderBackend(s) {
	case "", CPUProviderBackend:
		return CPUProviderBackend, nil
	case CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
		return ProviderBackend(s), nil
	default:
		return "", unsupported(ProviderBackend(s))
	}
}

// NewSessionOptions builds session options for the configured provider. The
// caller owns the returned options and must Destroy them.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: Options with threading, graph optimization and the
//     execution provider applied.
//   - error: If the provider cannot be enabled.
func NewSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating ORT session options")
	}

	if err := apply(options, cfg); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func apply(options *ort.SessionOptions, cfg Config) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpNumThreads); err != nil {
		return errors.Wrap(err, "setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpNumThreads); err != nil {
		return errors.Wrap(err, "setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "setting graph optimization level")
	}

	switch cfg.Backend {
	case "", CPUProviderBackend:
		return nil
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(uint32(cfg.DeviceID)); err != nil {
			return errors.Wrap(err, "enabling CoreML")
		}
	case OpenVINOProviderBackend:
		if err := options.AppendExecutionProviderOpenVINO(cfg.Options); err != nil {
			return errors.Wrap(err, "enabling OpenVINO")
		}
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "creating CUDA options")
		}
		defer cuda.Destroy()

		if err := cuda.Update(cudaOptions(cfg)); err != nil {
			return errors.Wrap(err, "updating CUDA options")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "enabling CUDA")
		}
	default:
		return unsupported(cfg.Backend)
	}
	return nil
}

// cudaOptions merges the device id into the pass-through options.
func cudaOptions(cfg Config) map[string]string {
	out := make(map[string]string, len(cfg.Options)+1)
	for k, v := range cfg.Options {
		out[k] = v
	}
	if _, ok := out["device_id"]; !ok {
		out["device_id"] = strconv.Itoa(cfg.DeviceID)
	}
	return out
}

func unsupported(b ProviderBackend) error {
	return errors.Wrapf(ErrUnsupportedBackend, "backend %q", b)
}
