// Package capture - Frame sources and late-frame dropping.
package capture

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
)

// ErrSourceClosed is returned when reading from a closed source.
var ErrSourceClosed = errors.New("source is closed")

// Frame is one captured image with its sequence number.
type Frame struct {
	// ID increases by one for every frame a source produces.
	ID        uint64
	Image     image.Image
	Timestamp time.Time
}

// Source produces frames until it is exhausted or closed. A finite source
// returns io.EOF once its last frame has been read.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}
