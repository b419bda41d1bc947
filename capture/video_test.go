package capture

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewFile_Missing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.mp4")
}

func TestVideoSource_Close(t *testing.T) {
	// an unopened capture reads nothing, which a file source reports as EOF
	vc, err := gocv.VideoCaptureFile(filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	require.NotNil(t, vc)
	src := newVideoSource(vc, "missing.mp4", true)

	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close(), "closing twice is a no-op")

	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
}
