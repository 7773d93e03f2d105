package synthesize

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
)

// SystemPrompt returns the system-role message for section synthesis
func SystemPrompt() string {
	return "You are a precise radiologist who intelligently integrates findings into normal templates while maintaining accuracy and natural language flow."
}

// templateStructure is the part of a section the model sees besides the
// normal sentence
type templateStructure struct {
	Options     []string             `yaml:"options,omitempty"`
	Subsections []catalog.Subsection `yaml:"subsections,omitempty"`
}

// BuildPrompt creates the merge request for one section. violation, when
// non-nil, is the reason a previous answer was rejected.
func BuildPrompt(section catalog.Section, normal string, findings []model.Finding, violation error) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Process these findings for the %s section of a CT report.\n\n", section.Key)
	fmt.Fprintf(&b, "Normal Template: %q\n", normal)

	if section.HasStructure() {
		structure, err := yaml.Marshal(templateStructure{Options: section.Options, Subsections: section.Subsections})
		if err == nil {
			b.WriteString("\nTemplate structure (parts of the normal text and canned abnormal phrasings):\n")
			b.Write(structure)
			b.WriteString("Placeholders such as {size} or {location} may only be filled with values stated in the findings; skip an option whose placeholders cannot be filled.\n")
		}
	}

	findingsJSON, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		findingsJSON = []byte("[]")
	}
	fmt.Fprintf(&b, "\nFindings to integrate:\n%s\n", findingsJSON)

	b.WriteString(`
CRITICAL RULES:
1. Start by identifying which parts of the normal template are contradicted by the findings
2. Replace only the contradicted parts and keep every unaffected part of the template
3. NEVER say "normal", "normal-appearing" or "unremarkable" for any structure that has an abnormality
4. When a finding has a series/image reference, add it in parentheses at the end of that finding, exactly like "(Series 4, Image 76)". Never add a reference that is not given in the findings
5. For paired organs (kidneys, adrenal glands, ovaries), state the status of the unaffected side when the finding is one-sided
6. Create natural sentence flow and do not add findings that are not listed

Examples:
Finding: "mild fatty atrophy pancreas"
BAD: "Normal-appearing pancreas with mild fatty atrophy" (contradiction)
GOOD: "Pancreas demonstrates mild fatty atrophy. No mass or ductal dilation."

Finding: "periappendiceal fat stranding with 6mm appendicolith"
BAD: "Normal-appearing appendix with periappendiceal fat stranding" (contradiction)
GOOD: "Appendix shows periappendiceal fat stranding with a 6mm appendicolith"
`)

	if ex, ok := sectionExamples[section.Key]; ok {
		finding, _ := json.Marshal(ex.Finding)
		fmt.Fprintf(&b, "\nExample for %s:\nTemplate: %q\nFinding: %s\nOutput: %q\n", section.Key, ex.Template, finding, ex.Output)
	}

	if violation != nil {
		fmt.Fprintf(&b, "\nYour previous answer was rejected: %v. Rewrite it so that no abnormal structure is described as normal.\n", violation)
	}

	fmt.Fprintf(&b, `
Return in this exact JSON format:
{
  %q: {
    "text": "Complete sentence(s) integrating findings correctly."
  }
}`, section.Key)

	return b.String()
}
