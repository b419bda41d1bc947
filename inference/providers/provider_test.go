package providers

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderBackend
		wantErr bool
	}{
		{in: "", want: CPUProviderBackend},
		{in: "cpu", want: CPUProviderBackend},
		{in: "coreml", want: CoreMLProviderBackend},
		{in: "cuda", want: CUDAProviderBackend},
		{in: "openvino", want: OpenVINOProviderBackend},
		{in: "tensorrt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedBackend), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Backend: CUDAProviderBackend, DeviceID: -1}.Validate())
	assert.Error(t, Config{IntraOpNumThreads: -2}.Validate())

	err := Config{Backend: "tpu"}.Validate()
	assert.True(t, errors.Is(err, ErrUnsupportedBackend), "got %v", err)
	assert.EqualError(t, err, `backend "tpu": unsupported execution provider`)
}

func TestNewSessionOptions_UnsupportedBackend(t *testing.T) {
	// rejected before any runtime call
	_, err := NewSessionOptions(Config{Backend: "tpu"})
	assert.True(t, errors.Is(err, ErrUnsupportedBackend), "got %v", err)
}

func TestCUDAOptions(t *testing.T) {
	got := cudaOptions(Config{DeviceID: 1, Options: map[string]string{"arena_extend_strategy": "kSameAsRequested"}})
	assert.Equal(t, map[string]string{
		"device_id":             "1",
		"arena_extend_strategy": "kSameAsRequested",
	}, got)

	got = cudaOptions(Config{DeviceID: 1, Options: map[string]string{"device_id": "3"}})
	assert.Equal(t, "3", got["device_id"])
}
