package capture

import (
	"context"
	"image"
	"io"
	"sync"
	"time"
)

// StillSource replays a fixed list of images. With Loop set it starts over
// after the last image, otherwise it returns io.EOF.
type StillSource struct {
	// Interval paces reads like a camera would. Zero reads as fast as asked.
	Interval time.Duration
	Loop     bool

	mu     sync.Mutex
	images []image.Image
	next   uint64
	closed bool
}

// NewStillSource returns a source over imgs.
func NewStillSource(imgs ...image.Image) *StillSource {
	return &StillSource{images: imgs}
}

// Read implements Source.
func (s *StillSource) Read(ctx context.Context) (Frame, error) {
	if s.Interval > 0 {
		timer := time.NewTimer(s.Interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, ErrSourceClosed
	}
	if len(s.images) == 0 || (!s.Loop && s.next >= uint64(len(s.images))) {
		return Frame{}, io.EOF
	}

	f := Frame{
		ID:        s.next,
		Image:     s.images[s.next%uint64(len(s.images))],
		Timestamp: time.Now(),
	}
	s.next++
	return f, nil
}

// Close implements Source.
func (s *StillSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
