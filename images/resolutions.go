// Package images - Capture resolution presets for camera sources.
package images

import "fmt"

// ResolutionType is the common name of a capture resolution.
type ResolutionType string

// Capture presets supported by camera sources.
const (
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// ResolutionPixels describes the exact dimensions of a resolution.
type ResolutionPixels struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Resolution is a named capture size.
type Resolution struct {
	Name   ResolutionType   `json:"name"   yaml:"name"`
	Pixels ResolutionPixels `json:"pixels" yaml:"pixels"`
}

// ViewSize returns the resolution as a ViewSize.
func (r Resolution) ViewSize() ViewSize {
	return ViewSize{Width: float32(r.Pixels.Width), Height: float32(r.Pixels.Height)}
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", r.Name, r.Pixels.Width, r.Pixels.Height)
}

var resolutions = []Resolution{
	{Name: ResolutionTypeNHD, Pixels: ResolutionPixels{Width: 640, Height: 360}},
	{Name: ResolutionTypeVGA, Pixels: ResolutionPixels{Width: 640, Height: 480}},
	{Name: ResolutionTypeHD720p, Pixels: ResolutionPixels{Width: 1280, Height: 720}},
	{Name: ResolutionTypeFHD1080p, Pixels: ResolutionPixels{Width: 1920, Height: 1080}},
	{Name: ResolutionType4KUHD, Pixels: ResolutionPixels{Width: 3840, Height: 2160}},
}

// GetAllResolutions returns a copy of every supported preset, smallest first.
func GetAllResolutions() []Resolution {
	out := make([]Resolution, len(resolutions))
	copy(out, resolutions)
	return out
}

// GetResolutionByType looks up a preset by name.
//
// Arguments:
//   - t: The preset name, e.g. ResolutionTypeHD720p.
//
// Returns:
//   - Resolution: The matching preset.
//   - bool: False if the name is unknown.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	for _, r := range resolutions {
		if r.Name == t {
			return r, true
		}
	}
	return Resolution{}, false
}
