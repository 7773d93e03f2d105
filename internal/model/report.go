package model

import "time"

// Report is the terminal artifact of one generation run.
// It is written once and never updated in place.
type Report struct {
	StudyType string                       `json:"study_type,omitempty"` // e.g. "CT Abdomen and Pelvis"
	Study     *StudyInfo                   `json:"study,omitempty"`      // Optional DICOM header metadata
	Sections  map[SectionKey]SectionResult `json:"sections"`             // Exactly one entry per catalog section
}

// SectionResult holds the finalized prose for one section
type SectionResult struct {
	Text string `json:"text"`
}

// NewReport creates an empty report for the given study type
func NewReport(studyType string) *Report {
	return &Report{
		StudyType: studyType,
		Sections:  make(map[SectionKey]SectionResult),
	}
}

// Sex selects gender-variant normal templates
type Sex string

const (
	SexUnknown Sex = ""
	SexFemale  Sex = "female"
	SexMale    Sex = "male"
)

// ParseSex accepts the spellings used by operators and DICOM (F/M/O)
func ParseSex(s string) Sex {
	switch s {
	case "f", "F", "female", "Female", "FEMALE":
		return SexFemale
	case "m", "M", "male", "Male", "MALE":
		return SexMale
	default:
		return SexUnknown
	}
}

// StudyInfo carries study metadata read from a DICOM header
type StudyInfo struct {
	Modality         string    `json:"modality,omitempty"`
	StudyDescription string    `json:"study_description,omitempty"`
	AccessionNumber  string    `json:"accession_number,omitempty"`
	StudyDate        time.Time `json:"study_date,omitempty"`
	PatientSex       Sex       `json:"patient_sex,omitempty"`
}
