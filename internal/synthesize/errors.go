package synthesize

import (
	"fmt"

	"github.com/PACSamericana/poly/internal/model"
)

// SectionMismatchError is a reply that does not carry {"<key>": {"text": ...}}
type SectionMismatchError struct {
	Section model.SectionKey
	Reason  string
	Raw     string
}

func (e *SectionMismatchError) Error() string {
	return fmt.Sprintf("section %s: reply mismatch: %s", e.Section, e.Reason)
}

// ConsistencyError is merged text that calls an abnormal structure normal
type ConsistencyError struct {
	Section  model.SectionKey
	Sentence string
	Term     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("section %s: sentence asserts normality but names %q: %q", e.Section, e.Term, e.Sentence)
}
