package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// FromFlat builds a RawDetectionSet from row-major buffers, the layout ONNX
// Runtime hands back for [N,4] and [N,C] outputs.
//
// Arguments:
//   - coords: N*4 values, (cx, cy, w, h) per row.
//   - confs: N*C values, C scores per row.
//   - n: The number of records.
//   - c: The number of classes.
//
// Returns:
//   - RawDetectionSet: Records that own copies of the input values.
//   - error: ErrShapeMismatch if a buffer length disagrees with n and c.
func FromFlat(coords, confs []float32, n, c int) (RawDetectionSet, error) {
	if n < 0 || c < 0 {
		return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "negative shape n=%d c=%d", n, c)
	}
	if len(coords) != n*4 {
		return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "coordinates hold %d values, want %d", len(coords), n*4)
	}
	if len(confs) != n*c {
		return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "confidences hold %d values, want %d", len(confs), n*c)
	}

	raw := RawDetectionSet{
		Coordinates: make([]Box, n),
		Confidences: make([][]float32, n),
	}
	// one backing array for all score rows
	scores := make([]float32, len(confs))
	copy(scores, confs)
	for i := 0; i < n; i++ {
		o := i * 4
		raw.Coordinates[i] = Box{CX: coords[o], CY: coords[o+1], W: coords[o+2], H: coords[o+3]}
		raw.Confidences[i] = scores[i*c : (i+1)*c : (i+1)*c]
	}
	return raw, nil
}

// FromTensors builds a RawDetectionSet from [N,4] and [N,C] tensors. A leading
// batch dimension of 1 is squeezed. Float32 and Float64 tensors are accepted.
func FromTensors(coords, confs tensor.Tensor) (RawDetectionSet, error) {
	if coords == nil || confs == nil {
		return RawDetectionSet{}, errors.Wrap(ErrShapeMismatch, "nil tensor")
	}

	coordShape, err := matrixShape(coords.Shape())
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "coordinates")
	}
	if coordShape[1] != 4 {
		return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "coordinates have %d columns, want 4", coordShape[1])
	}
	confShape, err := matrixShape(confs.Shape())
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "confidences")
	}
	if coordShape[0] != confShape[0] {
		return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "%d coordinate rows but %d confidence rows",
			coordShape[0], confShape[0])
	}

	coordData, err := float32Data(coords)
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "coordinates")
	}
	confData, err := float32Data(confs)
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "confidences")
	}
	return FromFlat(coordData, confData, coordShape[0], confShape[1])
}

// matrixShape returns the (rows, cols) of a rank-2 shape, or of a rank-3
// shape with a batch of one.
func matrixShape(s tensor.Shape) ([2]int, error) {
	switch {
	case s.Dims() == 2:
		return [2]int{s[0], s[1]}, nil
	case s.Dims() == 3 && s[0] == 1:
		return [2]int{s[1], s[2]}, nil
	default:
		return [2]int{}, errors.Wrapf(ErrShapeMismatch, "unsupported shape %v", s)
	}
}

func float32Data(t tensor.Tensor) ([]float32, error) {
	if v, ok := t.(tensor.View); ok && v.IsMaterializable() {
		t = v.Materialize()
	}
	switch data := t.Data().(type) {
	case []float32:
		return data, nil
	case []float64:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrShapeMismatch, "unsupported dtype %v", t.Dtype())
	}
}

// FromBuffers decodes row-major runtime buffers with their shapes. Non-empty
// buffers are wrapped as dense tensors without copying and read through
// FromTensors.
//
// Arguments:
//   - coords: The coordinates buffer.
//   - coordShape: Its shape, [N,4] or [1,N,4].
//   - confs: The confidence buffer.
//   - confShape: Its shape, [N,C] or [1,N,C].
//
// Returns:
//   - RawDetectionSet: The decoded records.
//   - error: ErrShapeMismatch if a shape is unsupported or disagrees with its buffer.
func FromBuffers(coords []float32, coordShape []int, confs []float32, confShape []int) (RawDetectionSet, error) {
	if len(coords) == 0 || len(confs) == 0 {
		cs, err := matrixShape(tensor.Shape(coordShape))
		if err != nil {
			return RawDetectionSet{}, errors.Wrap(err, "coordinates")
		}
		ss, err := matrixShape(tensor.Shape(confShape))
		if err != nil {
			return RawDetectionSet{}, errors.Wrap(err, "confidences")
		}
		if cs[1] != 4 {
			return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "coordinates have %d columns, want 4", cs[1])
		}
		if cs[0] != ss[0] {
			return RawDetectionSet{}, errors.Wrapf(ErrShapeMismatch, "%d coordinate rows but %d confidence rows",
				cs[0], ss[0])
		}
		return FromFlat(coords, confs, cs[0], ss[1])
	}

	ct, err := denseFromBuffer(coords, coordShape)
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "coordinates")
	}
	st, err := denseFromBuffer(confs, confShape)
	if err != nil {
		return RawDetectionSet{}, errors.Wrap(err, "confidences")
	}
	return FromTensors(ct, st)
}

// ScoresFromTensor reads a classifier output of shape [C] or [1,C].
func ScoresFromTensor(t tensor.Tensor) ([]float32, error) {
	if t == nil {
		return nil, errors.Wrap(ErrShapeMismatch, "nil tensor")
	}
	s := t.Shape()
	switch {
	case s.Dims() == 1:
	case s.Dims() == 2 && s[0] == 1:
	default:
		return nil, errors.Wrapf(ErrShapeMismatch, "unsupported score shape %v", s)
	}
	data, err := float32Data(t)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// ScoresFromBuffer wraps a classifier output buffer and reads it with
// ScoresFromTensor. The returned slice is a copy.
func ScoresFromBuffer(scores []float32, shape []int) ([]float32, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	t, err := denseFromBuffer(scores, shape)
	if err != nil {
		return nil, err
	}
	return ScoresFromTensor(t)
}

// denseFromBuffer checks the buffer fills the shape before handing it to
// tensor.New, which panics on a mismatch.
func denseFromBuffer(data []float32, shape []int) (tensor.Tensor, error) {
	if len(shape) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "missing shape")
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "invalid dimension in shape %v", shape)
		}
		size *= d
	}
	if size != len(data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values do not fill shape %v", len(data), shape)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}
