package postprocess

// Postprocessor filters or modifies the detections of one frame. Filters run
// after Process and never change its output order.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter returns a function that filters out detections below a certain confidence.
func NewScoreFilter(conf float32) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewAreaFilter returns a function that filters out detections smaller than
// area square pixels.
func NewAreaFilter(area float32) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Box.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLabelFilter keeps only detections whose class name is listed. An empty
// list keeps everything.
func NewLabelFilter(names ...string) Postprocessor {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	return func(in []Detection) []Detection {
		if len(keep) == 0 {
			return in
		}
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if _, ok := keep[d.ClassName]; ok {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain runs filters left to right. Nil filters are skipped.
func Chain(filters ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		for _, f := range filters {
			if f != nil {
				in = f(in)
			}
		}
		return in
	}
}
