package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput scales img to width x height and writes it into dst as planar
// RGB (CHW) in [0, 1]. The image is stretched to fill, so the normalized
// coordinates the model returns map back onto the original frame unchanged.
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination buffer, at least 3*width*height long.
//   - width: The model input width.
//   - height: The model input height.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, dst []float32, width, height int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid input size %dx%d", width, height)
	}
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
		b = img.Bounds()
	}

	i := 0
	for y := b.Min.Y; y < b.Min.Y+height; y++ {
		for x := b.Min.X; x < b.Min.X+width; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
