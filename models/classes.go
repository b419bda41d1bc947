package models

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LabelTable is an immutable, ordered list of class names indexed by the
// class id a model emits. It is built once at startup and shared read-only.
type LabelTable struct {
	family    ModelFamily
	names     []string
	nameToIdx map[string]int
}

// NewLabelTable builds a table from class names in model index order.
//
// Arguments:
//   - family: The label family the names belong to.
//   - names: Class names, index 0 first.
//
// Returns:
//   - *LabelTable: The table. The names slice is copied.
//   - error: If the list is empty or contains a blank name.
func NewLabelTable(family ModelFamily, names []string) (*LabelTable, error) {
	if len(names) == 0 {
		return nil, errors.New("label table must contain at least one class")
	}
	t := &LabelTable{
		family:    family,
		names:     make([]string, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, errors.Errorf("label %d is blank", i)
		}
		t.names[i] = n
		// first occurrence wins for reverse lookups
		if _, ok := t.nameToIdx[n]; !ok {
			t.nameToIdx[n] = i
		}
	}
	return t, nil
}

// MustLabelTable is NewLabelTable that panics on error. Used for built-in tables.
func MustLabelTable(family ModelFamily, names []string) *LabelTable {
	t, err := NewLabelTable(family, names)
	if err != nil {
		panic(err)
	}
	return t
}

// Family returns the label family of the table.
func (t *LabelTable) Family() ModelFamily { return t.family }

// Len returns the number of classes, C.
func (t *LabelTable) Len() int { return len(t.names) }

// Name returns the class name for an index.
func (t *LabelTable) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(t.names) {
		return "", errors.Errorf("index %d out of range for %d %s labels", idx, len(t.names), t.family)
	}
	return t.names[idx], nil
}

// Index returns the class index for a name.
func (t *LabelTable) Index(name string) (int, error) {
	idx, ok := t.nameToIdx[name]
	if !ok {
		return -1, errors.Errorf("name %q not found in %s labels", name, t.family)
	}
	return idx, nil
}

// Names returns a copy of the class names.
func (t *LabelTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// LoadLabels reads one class name per line. Blank lines and lines starting
// with '#' are skipped.
func LoadLabels(family ModelFamily, r io.Reader) (*LabelTable, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading labels")
	}
	return NewLabelTable(family, names)
}

// LoadLabelFile reads a labels file from disk. See LoadLabels.
func LoadLabelFile(family ModelFamily, path string) (*LabelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening labels file")
	}
	defer f.Close()

	t, err := LoadLabels(family, f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return t, nil
}

// LabelTableFor returns the built-in table for a label family.
func LabelTableFor(family ModelFamily) (*LabelTable, error) {
	switch family {
	case ModelFamilyYOLO, ModelFamilyCOCO:
		return COCO80, nil
	case ModelFamilyVOC:
		return PascalVOC, nil
	default:
		return nil, errors.Errorf("no built-in labels for family %q", family)
	}
}

// COCO80 is the 80 COCO classes without a background entry, in the order
// YOLO models index them.
var COCO80 = MustLabelTable(ModelFamilyYOLO, []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
})

// PascalVOC is the 20 Pascal VOC classes without a background entry.
var PascalVOC = MustLabelTable(ModelFamilyVOC, []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
})
