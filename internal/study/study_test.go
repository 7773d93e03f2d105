package study

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/PACSamericana/poly/internal/model"
)

func mustNewElement(t *testing.T, tg tag.Tag, value any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("create element %v: %v", tg, err)
	}
	return elem
}

func writeStudy(t *testing.T, extra ...*dicom.Element) string {
	t.Helper()

	elements := []*dicom.Element{
		mustNewElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6"}),
		mustNewElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(t, tag.SOPInstanceUID, []string{"1.2.3.4.5.6"}),
		mustNewElement(t, tag.PatientName, []string{"DOE^JANE"}),
	}
	elements = append(elements, extra...)

	path := filepath.Join(t.TempDir(), "IM000001")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := dicom.Write(f, dicom.Dataset{Elements: elements}); err != nil {
		t.Fatalf("write DICOM: %v", err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	path := writeStudy(t,
		mustNewElement(t, tag.PatientSex, []string{"F"}),
		mustNewElement(t, tag.StudyDate, []string{"20240315"}),
		mustNewElement(t, tag.StudyDescription, []string{"CT ABDOMEN PELVIS W CONTRAST"}),
		mustNewElement(t, tag.AccessionNumber, []string{"ACC1234"}),
		mustNewElement(t, tag.Modality, []string{"CT"}),
	)

	info, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if info.PatientSex != model.SexFemale {
		t.Errorf("Expected female, got %q", info.PatientSex)
	}
	if info.Modality != "CT" || !IsCT(info) {
		t.Errorf("Expected CT modality, got %q", info.Modality)
	}
	if info.AccessionNumber != "ACC1234" {
		t.Errorf("Unexpected accession %q", info.AccessionNumber)
	}
	if info.StudyDescription != "CT ABDOMEN PELVIS W CONTRAST" {
		t.Errorf("Unexpected description %q", info.StudyDescription)
	}
	if !info.StudyDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected study date %v", info.StudyDate)
	}
}

func TestReadFile_MissingAttributes(t *testing.T) {
	path := writeStudy(t, mustNewElement(t, tag.Modality, []string{"MR"}))

	info, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if info.PatientSex != model.SexUnknown {
		t.Errorf("Expected unknown sex, got %q", info.PatientSex)
	}
	if !info.StudyDate.IsZero() {
		t.Error("Expected zero study date")
	}
	if IsCT(info) {
		t.Error("MR study reported as CT")
	}
}

func TestReadFile_NotDICOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("mild hepatic steatosis"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFile(path); err == nil {
		t.Error("Expected error for non-DICOM file")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
