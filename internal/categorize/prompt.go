package categorize

import (
	"encoding/json"
	"fmt"

	"github.com/PACSamericana/poly/internal/model"
)

// SystemPrompt returns the system-role message for categorization
func SystemPrompt() string {
	return "You are a radiologist assistant that categorizes findings by anatomical section. Maintain all reference information like series and image numbers."
}

// BuildPrompt creates the categorization request for one dictation
func BuildPrompt(dictation string, keys []model.SectionKey) string {
	sections, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		sections = []byte("[]")
	}

	return fmt.Sprintf(`You are a radiologist assistant categorizing imaging findings.

TASK: Analyze this dictation and assign each finding to EXACTLY ONE most appropriate anatomical section.

Raw dictation: %q

CRITICAL RULES:
1. EVERY finding in the dictation MUST be categorized
2. Each finding goes to ONE section only
3. Lung findings (atelectasis, pleural effusion, nodules, consolidation, etc.) ALWAYS go to %s
4. Related findings MUST stay together (e.g., appendix and surrounding changes go together in gastrointestinal)
5. Preserve exact measurements and image references with their findings
6. Only include findings explicitly stated in the dictation. Do not infer, add or expand findings
7. Only fill "series" and "image" when the dictation states them for that finding; otherwise use null
8. Use these exact section names:
%s

Output format:
{
  "section_name": [
    {
      "finding": "exact finding text",
      "series": "X or null",
      "image": "Y or null"
    }
  ]
}

%s

Remember:
- NEVER split related findings across sections
- NEVER skip any finding
- ALL lung findings go to %s
- Omit sections that have no findings

Return a JSON object mapping sections to their findings, preserving exact wording.`,
		dictation, LungSection, sections, formatExample(), LungSection)
}
