package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppress(t *testing.T) {
	raw := RawDetectionSet{
		Coordinates: []Box{
			{CX: 0.50, CY: 0.50, W: 0.20, H: 0.20}, // overlaps #1, weaker
			{CX: 0.51, CY: 0.50, W: 0.20, H: 0.20},
			{CX: 0.10, CY: 0.10, W: 0.05, H: 0.05}, // below confidence
			{CX: 0.80, CY: 0.80, W: 0.10, H: 0.10}, // isolated
		},
		Confidences: [][]float32{
			{0.6, 0.1},
			{0.1, 0.9},
			{0.2, 0.1},
			{0.7, 0.0},
		},
	}

	t.Run("class agnostic", func(t *testing.T) {
		out := Suppress(raw, NMSConfig{IoUThreshold: 0.5, ConfidenceThreshold: 0.3})
		require.Equal(t, 2, out.Len())
		require.Len(t, out.Confidences, 2)

		// descending by best score
		assert.Equal(t, raw.Coordinates[1], out.Coordinates[0])
		assert.Equal(t, raw.Coordinates[3], out.Coordinates[1])
	})

	t.Run("class aware keeps overlapping boxes of different classes", func(t *testing.T) {
		out := Suppress(raw, NMSConfig{IoUThreshold: 0.5, ConfidenceThreshold: 0.3, ClassAware: true})
		require.Equal(t, 3, out.Len())
		assert.Equal(t, raw.Coordinates[1], out.Coordinates[0])
		assert.Equal(t, raw.Coordinates[3], out.Coordinates[1])
		assert.Equal(t, raw.Coordinates[0], out.Coordinates[2])
	})

	t.Run("threshold of one keeps everything above confidence", func(t *testing.T) {
		out := Suppress(raw, NMSConfig{IoUThreshold: 1, ConfidenceThreshold: 0.3})
		assert.Equal(t, 3, out.Len())
	})
}

func TestSuppress_TiesKeepInputOrder(t *testing.T) {
	raw := RawDetectionSet{
		Coordinates: []Box{
			{CX: 0.2, CY: 0.2, W: 0.1, H: 0.1},
			{CX: 0.8, CY: 0.8, W: 0.1, H: 0.1},
		},
		Confidences: [][]float32{{0.5}, {0.5}},
	}

	out := Suppress(raw, NMSConfig{IoUThreshold: 0.5})
	require.Equal(t, 2, out.Len())
	assert.Equal(t, raw.Coordinates, out.Coordinates)
}

func TestSuppress_Empty(t *testing.T) {
	out := Suppress(RawDetectionSet{}, NMSConfig{IoUThreshold: 0.5, ConfidenceThreshold: 0.3})
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, out.Confidences)
}
