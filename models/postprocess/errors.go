package postprocess

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch means the coordinate, confidence and label lengths disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidGeometry means the view has a non-positive dimension.
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// IsPermanent reports whether err is a contract violation that retrying with
// the same input cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrShapeMismatch) || errors.Is(err, ErrInvalidGeometry)
}
