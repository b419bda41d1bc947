package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-overlay/images"
)

func filterInput() []Detection {
	return []Detection{
		{ClassName: "person", Confidence: 0.9, Box: images.Rect{Width: 100, Height: 100}},
		{ClassName: "car", Confidence: 0.4, Box: images.Rect{Width: 10, Height: 10}},
		{ClassName: "dog", Confidence: 0.6, Box: images.Rect{Width: 50, Height: 20}},
	}
}

func names(dets []Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.ClassName
	}
	return out
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Postprocessor
		want   []string
	}{
		{"score", NewScoreFilter(0.5), []string{"person", "dog"}},
		{"area", NewAreaFilter(1000), []string{"person", "dog"}},
		{"labels", NewLabelFilter("car", "dog"), []string{"car", "dog"}},
		{"no labels keeps all", NewLabelFilter(), []string{"person", "car", "dog"}},
		{"chain", Chain(NewScoreFilter(0.5), nil, NewLabelFilter("person")), []string{"person"}},
		{"empty chain", Chain(), []string{"person", "car", "dog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(tt.filter(filterInput())))
		})
	}
}
