// Package catalog holds the fixed table of anatomical report sections.
//
// The catalog is versioned configuration data: the built-in CT abdomen and
// pelvis catalog is embedded as YAML, and an alternate document with the same
// schema can be loaded at startup. It is never modified after loading.
package catalog

import (
	"regexp"
	"strings"

	"github.com/PACSamericana/poly/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Catalog is the ordered set of report sections
type Catalog struct {
	Version   int       `yaml:"version" json:"version"`
	StudyType string    `yaml:"study_type" json:"study_type"`
	Sections  []Section `yaml:"sections" json:"sections"`

	index map[model.SectionKey]int
}

// Section is one anatomical reporting category and its templates
type Section struct {
	Key          model.SectionKey `yaml:"key" json:"key"`
	Title        string           `yaml:"title,omitempty" json:"title,omitempty"`
	Normal       string           `yaml:"normal" json:"normal"`
	NormalFemale string           `yaml:"normal_female,omitempty" json:"normal_female,omitempty"`
	NormalMale   string           `yaml:"normal_male,omitempty" json:"normal_male,omitempty"`
	Options      []string         `yaml:"options,omitempty" json:"options,omitempty"`
	Subsections  []Subsection     `yaml:"subsections,omitempty" json:"subsections,omitempty"`
}

// Subsection is a nested part of a section with its own normal/options pair
type Subsection struct {
	Key     string   `yaml:"key" json:"key"`
	Normal  string   `yaml:"normal" json:"normal"`
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Keys returns the section keys in declared order
func (c *Catalog) Keys() []model.SectionKey {
	keys := make([]model.SectionKey, len(c.Sections))
	for i, s := range c.Sections {
		keys[i] = s.Key
	}
	return keys
}

// Lookup returns the section for key
func (c *Catalog) Lookup(key model.SectionKey) (Section, bool) {
	idx, ok := c.index[key]
	if !ok {
		return Section{}, false
	}
	return c.Sections[idx], true
}

// Has reports whether key is a catalog section
func (c *Catalog) Has(key model.SectionKey) bool {
	_, ok := c.index[key]
	return ok
}

// Index returns the declared position of key, or -1
func (c *Catalog) Index(key model.SectionKey) int {
	idx, ok := c.index[key]
	if !ok {
		return -1
	}
	return idx
}

// Len returns the number of sections
func (c *Catalog) Len() int {
	return len(c.Sections)
}

// NormalText resolves the normal default for the given patient sex
func (s Section) NormalText(sex model.Sex) string {
	switch {
	case sex == model.SexFemale && s.NormalFemale != "":
		return s.NormalFemale
	case sex == model.SexMale && s.NormalMale != "":
		return s.NormalMale
	default:
		return s.Normal
	}
}

// HasStructure reports whether the section exposes options or subsections
func (s Section) HasStructure() bool {
	return len(s.Options) > 0 || len(s.Subsections) > 0
}

// DisplayTitle returns the section header used in rendered reports
func (s Section) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(s.Key), "_", " "))
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Placeholders lists the fill-in slots of an option string in order of
// appearance, without duplicates
func Placeholders(option string) []string {
	var slots []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(option, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			slots = append(slots, m[1])
		}
	}
	return slots
}
