package render

import (
	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/models/postprocess"
)

// Renderer draws a frame with its detections and a caption. Detections are in
// the pixel space of frame.Image.
type Renderer interface {
	Render(frame capture.Frame, dets []postprocess.Detection, caption string) error
	Close() error
}

// Thickness is the outline width in pixels.
const Thickness = 2
