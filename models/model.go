// Package models - Label families and class tables for detection models.
package models

// ModelFamily identifies the label convention a model was trained with.
type ModelFamily string

const (
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the YOLO model family (80 COCO classes, no background).
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyVOC is the Pascal VOC model family.
	ModelFamilyVOC ModelFamily = "voc"
	// ModelFamilyCustom is a family loaded from a labels file.
	ModelFamilyCustom ModelFamily = "custom"
)
