package capture

import (
	"bytes"
	"image"
	// decoders for still frames
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-overlay/util"
)

// NewDirectorySource decodes every frame image in dir, in frame order, and
// replays them.
func NewDirectorySource(dir string) (*StillSource, error) {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no images in %s", dir)
	}

	imgs := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", f.Path)
		}
		imgs = append(imgs, img)
	}
	return NewStillSource(imgs...), nil
}
