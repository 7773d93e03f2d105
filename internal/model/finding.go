package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SectionKey identifies one anatomical reporting section
type SectionKey string

// Finding is one extracted clinical statement from a dictation
type Finding struct {
	Text   string `json:"finding"`          // Finding description as dictated
	Series string `json:"series,omitempty"` // Series reference, only when dictated
	Image  string `json:"image,omitempty"`  // Image reference, only when dictated
}

// HasReference reports whether the finding carries a series or image reference
func (f Finding) HasReference() bool {
	return f.Series != "" || f.Image != ""
}

// Reference renders the canonical trailing reference, e.g. "(Series 4, Image 76)".
// Returns "" when the finding has no reference.
func (f Finding) Reference() string {
	switch {
	case f.Series != "" && f.Image != "":
		return fmt.Sprintf("(Series %s, Image %s)", f.Series, f.Image)
	case f.Series != "":
		return fmt.Sprintf("(Series %s)", f.Series)
	case f.Image != "":
		return fmt.Sprintf("(Image %s)", f.Image)
	default:
		return ""
	}
}

// UnmarshalJSON accepts the shapes models actually emit for a finding: a bare
// string, or an object whose series/image are strings, numbers or null.
func (f *Finding) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*f = Finding{Text: strings.TrimSpace(text)}
		return nil
	}

	var raw struct {
		Finding     json.RawMessage `json:"finding"`
		Description json.RawMessage `json:"description"`
		Series      json.RawMessage `json:"series"`
		Image       json.RawMessage `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	text := scalarString(raw.Finding)
	if text == "" {
		text = scalarString(raw.Description)
	}

	*f = Finding{
		Text:   strings.TrimSpace(text),
		Series: normalizeReference(scalarString(raw.Series), "series"),
		Image:  normalizeReference(scalarString(raw.Image), "image"),
	}
	return nil
}

// scalarString decodes a JSON string or number; anything else yields ""
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}

	return ""
}

var placeholderRefs = map[string]bool{
	"":              true,
	"none":          true,
	"null":          true,
	"n/a":           true,
	"na":            true,
	"not present":   true,
	"not specified": true,
	"unknown":       true,
}

var referenceLabels = map[string]*regexp.Regexp{
	"series": regexp.MustCompile(`(?i)^(series|ser|se)\.?\s*:?\s*`),
	"image":  regexp.MustCompile(`(?i)^(image|img|im)\.?\s*:?\s*`),
}

// normalizeReference strips label words ("Series 4" -> "4") and placeholder
// values the model uses for "absent"
func normalizeReference(value, label string) string {
	v := strings.TrimSpace(value)
	if placeholderRefs[strings.ToLower(v)] {
		return ""
	}

	if pattern, ok := referenceLabels[label]; ok {
		v = pattern.ReplaceAllString(v, "")
	}
	v = strings.Trim(v, " ()#,")

	if placeholderRefs[strings.ToLower(v)] || strings.Contains(strings.ToLower(v), "if present") {
		return ""
	}
	return v
}

// CategorizedFindings maps each section to the findings assigned to it
type CategorizedFindings map[SectionKey][]Finding

// UnmarshalJSON accepts both the structured shape (section -> list of finding
// objects) and the simpler shape (section -> single string, list of strings
// or single object).
func (c *CategorizedFindings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(CategorizedFindings, len(raw))
	for key, value := range raw {
		findings, err := decodeSectionFindings(value)
		if err != nil {
			return fmt.Errorf("section %s: %w", key, err)
		}
		if len(findings) > 0 {
			out[SectionKey(key)] = findings
		}
	}

	*c = out
	return nil
}

func decodeSectionFindings(value json.RawMessage) ([]Finding, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil, nil
	}

	var findings []Finding
	switch value[0] {
	case '[':
		if err := json.Unmarshal(value, &findings); err != nil {
			return nil, err
		}
	case '{', '"':
		var f Finding
		if err := json.Unmarshal(value, &f); err != nil {
			return nil, err
		}
		findings = []Finding{f}
	default:
		return nil, fmt.Errorf("unexpected value %s", truncate(string(value), 40))
	}

	// Drop empty entries
	kept := findings[:0]
	for _, f := range findings {
		if f.Text != "" {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// Count returns the total number of findings across all sections
func (c CategorizedFindings) Count() int {
	n := 0
	for _, findings := range c {
		n += len(findings)
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
