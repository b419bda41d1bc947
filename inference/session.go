// Package inference - ONNX Runtime environment lifecycle.
package inference

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-overlay/inference/providers"
)

var environment struct {
	mu   sync.Mutex
	refs int
}

// acquireEnvironment initializes the process-wide ORT environment on first
// use. Every successful call must be paired with releaseEnvironment.
//
// Arguments:
//   - libPath: Path to the ONNX Runtime shared library. Empty selects the
//     platform default.
//
// Returns:
//   - error: If the library is missing or the environment fails to start.
func acquireEnvironment(libPath string) error {
	environment.mu.Lock()
	defer environment.mu.Unlock()

	if environment.refs > 0 {
		environment.refs++
		return nil
	}

	if libPath != "" {
		if _, err := os.Stat(libPath); err != nil {
			return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
		}
		ort.SetSharedLibraryPath(libPath)
	} else if def := providers.DefaultLibraryPath(); def != "" {
		// fall through to the loader search path when the bundled copy is absent
		if _, err := os.Stat(def); err == nil {
			ort.SetSharedLibraryPath(def)
		}
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, "initializing ORT environment")
		}
	}
	environment.refs = 1
	return nil
}

// releaseEnvironment tears the ORT environment down once the last engine is
// closed.
func releaseEnvironment() error {
	environment.mu.Lock()
	defer environment.mu.Unlock()

	if environment.refs == 0 {
		return nil
	}
	environment.refs--
	if environment.refs > 0 {
		return nil
	}
	return errors.Wrap(ort.DestroyEnvironment(), "destroying ORT environment")
}
