// Package study reads study metadata from a DICOM header.
package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/PACSamericana/poly/internal/model"
)

const dicomDateLayout = "20060102"

// ReadFile parses the header of a DICOM file. Pixel data is skipped.
// Missing optional attributes leave their fields empty.
func ReadFile(path string) (*model.StudyInfo, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parse DICOM %s: %w", path, err)
	}
	return FromDataset(ds)
}

// FromDataset extracts study metadata from a parsed dataset
func FromDataset(ds dicom.Dataset) (*model.StudyInfo, error) {
	info := &model.StudyInfo{
		Modality:         stringValue(ds, tag.Modality),
		StudyDescription: stringValue(ds, tag.StudyDescription),
		AccessionNumber:  stringValue(ds, tag.AccessionNumber),
		PatientSex:       model.ParseSex(stringValue(ds, tag.PatientSex)),
	}

	if raw := stringValue(ds, tag.StudyDate); raw != "" {
		date, err := time.Parse(dicomDateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid StudyDate %q: %w", raw, err)
		}
		info.StudyDate = date
	}

	return info, nil
}

// IsCT reports whether the study modality is computed tomography
func IsCT(info *model.StudyInfo) bool {
	return info != nil && strings.EqualFold(info.Modality, "CT")
}

func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return ""
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(values[0]), "\x00")
}
