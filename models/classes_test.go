package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOCO80(t *testing.T) {
	require.Equal(t, 80, COCO80.Len())

	name, err := COCO80.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "person", name)

	name, err = COCO80.Name(79)
	require.NoError(t, err)
	assert.Equal(t, "toothbrush", name)

	idx, err := COCO80.Index("dog")
	require.NoError(t, err)
	assert.Equal(t, 16, idx)

	assert.Equal(t, ModelFamilyYOLO, COCO80.Family())
	assert.Equal(t, 20, PascalVOC.Len())
}

func TestLabelTable_Errors(t *testing.T) {
	_, err := NewLabelTable(ModelFamilyCustom, nil)
	assert.Error(t, err)

	_, err = NewLabelTable(ModelFamilyCustom, []string{"cat", " "})
	assert.Error(t, err)

	table, err := NewLabelTable(ModelFamilyCustom, []string{"cat", "dog"})
	require.NoError(t, err)

	_, err = table.Name(-1)
	assert.Error(t, err)
	_, err = table.Name(2)
	assert.Error(t, err)
	_, err = table.Index("bird")
	assert.Error(t, err)
}

func TestLabelTable_Immutable(t *testing.T) {
	src := []string{"cat", "dog"}
	table, err := NewLabelTable(ModelFamilyCustom, src)
	require.NoError(t, err)

	src[0] = "bird"
	names := table.Names()
	names[1] = "fish"

	assert.Equal(t, []string{"cat", "dog"}, table.Names())
}

func TestLabelTable_DuplicateNamesResolveToFirst(t *testing.T) {
	table, err := NewLabelTable(ModelFamilyCustom, []string{"a", "b", "a"})
	require.NoError(t, err)

	idx, err := table.Index("a")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestLoadLabels(t *testing.T) {
	input := "# comment\nperson\n\n  bicycle  \ncar\n"
	table, err := LoadLabels(ModelFamilyCustom, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car"}, table.Names())

	_, err = LoadLabels(ModelFamilyCustom, strings.NewReader("# only comments\n"))
	assert.Error(t, err)
}

func TestLoadLabelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ndog\n"), 0o644))

	table, err := LoadLabelFile(ModelFamilyCustom, path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = LoadLabelFile(ModelFamilyCustom, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLabelTableFor(t *testing.T) {
	table, err := LabelTableFor(ModelFamilyYOLO)
	require.NoError(t, err)
	assert.Same(t, COCO80, table)

	table, err = LabelTableFor(ModelFamilyVOC)
	require.NoError(t, err)
	assert.Same(t, PascalVOC, table)

	_, err = LabelTableFor(ModelFamilyCustom)
	assert.Error(t, err)
}
