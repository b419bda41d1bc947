package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-overlay/images"
)

// VideoSource reads frames from a camera device or a video file via OpenCV.
type VideoSource struct {
	name   string
	finite bool

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	next    uint64
}

// NewCamera opens a capture device at the requested resolution and rate.
//
// Arguments:
//   - deviceID: The OS camera index.
//   - resolution: The requested frame size. Devices may pick the nearest mode.
//   - fps: The requested frame rate. 0 keeps the device default.
//
// Returns:
//   - *VideoSource: The open camera.
//   - error: If the device cannot be opened.
func NewCamera(deviceID int, resolution images.Resolution, fps int) (*VideoSource, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, discard(vc, errors.Wrapf(err, "opening camera %d", deviceID))
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(resolution.Pixels.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(resolution.Pixels.Height))
	if fps > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}

	return newVideoSource(vc, "camera", false), nil
}

// NewFile opens a video file. Reading past the last frame returns io.EOF.
func NewFile(path string) (*VideoSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, discard(vc, errors.Wrapf(err, "opening video %s", path))
	}
	return newVideoSource(vc, path, true), nil
}

// discard releases a capture that failed to open. gocv hands it back even
// on error.
func discard(vc *gocv.VideoCapture, err error) error {
	if vc == nil {
		return err
	}
	return multierr.Append(err, vc.Close())
}

func newVideoSource(vc *gocv.VideoCapture, name string, finite bool) *VideoSource {
	return &VideoSource{
		name:    name,
		finite:  finite,
		capture: vc,
		mat:     gocv.NewMat(),
	}
}

// Read implements Source. The returned image is a copy and stays valid after
// the next Read.
func (v *VideoSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return Frame{}, ErrSourceClosed
	}

	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		if v.finite {
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Errorf("failed to read frame from %s", v.name)
	}

	img, err := v.mat.ToImage()
	if err != nil {
		return Frame{}, errors.Wrap(err, "converting frame")
	}

	f := Frame{ID: v.next, Image: img, Timestamp: time.Now()}
	v.next++
	return f, nil
}

// Close releases the capture device. It is safe to call more than once.
func (v *VideoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil
	}
	err := multierr.Append(v.capture.Close(), v.mat.Close())
	v.capture = nil
	return err
}
