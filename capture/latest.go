package capture

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Latest is a one-slot mailbox. Put replaces a frame nobody has taken yet, so
// a slow consumer always sees the newest frame and late frames are dropped.
type Latest struct {
	mu      sync.Mutex
	frame   Frame
	full    bool
	closed  bool
	err     error
	ready   chan struct{}
	dropped atomic.Uint64
}

// NewLatest returns an empty mailbox.
func NewLatest() *Latest {
	return &Latest{ready: make(chan struct{}, 1)}
}

// Put stores f, replacing any frame not yet taken.
//
// Returns:
//   - bool: True if an untaken frame was discarded.
func (l *Latest) Put(f Frame) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	replaced := l.full
	if replaced {
		l.dropped.Add(1)
	}
	l.frame = f
	l.full = true

	select {
	case l.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Take blocks until a frame is available, the mailbox is closed or ctx ends.
// A closed mailbox hands out its last frame before returning the close error.
func (l *Latest) Take(ctx context.Context) (Frame, error) {
	for {
		l.mu.Lock()
		if l.full {
			f := l.frame
			l.frame = Frame{}
			l.full = false
			l.mu.Unlock()
			return f, nil
		}
		if l.closed {
			err := l.err
			l.mu.Unlock()
			return Frame{}, err
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-l.ready:
		}
	}
}

// CloseWithError stops the mailbox. Pending Takes return err once the last
// frame has been taken. A nil err is reported as io.EOF.
func (l *Latest) CloseWithError(err error) {
	if err == nil {
		err = io.EOF
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.err = err

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// Dropped is the number of frames replaced before anyone took them.
func (l *Latest) Dropped() uint64 {
	return l.dropped.Load()
}

// Pump reads src into mb until ctx ends or src fails, then closes mb with the
// reason. Transient read errors are logged and skipped; a source that keeps
// failing is given up after maxConsecutiveErrors.
//
// Arguments:
//   - ctx: Stops the pump.
//   - src: The frame source.
//   - mb: The mailbox to fill.
//   - logger: Receives read errors. Nil disables logging.
//
// Returns:
//   - error: io.EOF when a finite source ends, ctx.Err() on cancel, or the
//     last read error.
func Pump(ctx context.Context, src Source, mb *Latest, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	failures := 0
	for {
		f, err := src.Read(ctx)
		switch {
		case err == nil:
			failures = 0
			if mb.Put(f) {
				logger.Debugw("dropped late frame", "frame", f.ID, "dropped", mb.Dropped())
			}
			continue
		case ctx.Err() != nil:
			mb.CloseWithError(ctx.Err())
			return ctx.Err()
		case errors.Is(err, io.EOF), errors.Is(err, ErrSourceClosed):
			mb.CloseWithError(err)
			return err
		}

		failures++
		logger.Warnw("frame read failed", "error", err, "consecutive", failures)
		if failures >= maxConsecutiveErrors {
			err = errors.Wrapf(err, "giving up after %d consecutive read errors", failures)
			mb.CloseWithError(err)
			return err
		}
	}
}

const maxConsecutiveErrors = 10
