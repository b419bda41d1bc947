package providers

import "runtime"

// DefaultLibraryPath returns the conventional location of the ONNX Runtime
// shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library, or "" to let ORT search the
//     system loader paths.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}
