package synthesize

import (
	"regexp"
	"strings"

	"github.com/PACSamericana/poly/internal/model"
)

var (
	parenthetical = regexp.MustCompile(`\s*\(([^()]*)\)`)
	seriesInText  = regexp.MustCompile(`(?i)\b(?:series|ser|se)\.?\s*(?:#|no\.?)?\s*:?\s*([0-9][0-9A-Za-z]*)`)
	imageInText   = regexp.MustCompile(`(?i)\b(?:images?|img|im)\.?\s*(?:#|no\.?)?\s*:?\s*([0-9][0-9A-Za-z]*)`)
)

// GuardReferences makes the series/image parentheticals in text agree with
// the supplied findings. Parentheticals naming a reference that was not
// supplied are removed, matching ones are rewritten to the canonical
// "(Series X, Image Y)" form, and supplied references the model dropped are
// appended.
func GuardReferences(text string, findings []model.Finding) string {
	var supplied []model.Finding
	for _, f := range findings {
		if f.HasReference() {
			supplied = append(supplied, f)
		}
	}
	present := make([]bool, len(supplied))

	out := parenthetical.ReplaceAllStringFunc(text, func(match string) string {
		inner := parenthetical.FindStringSubmatch(match)[1]
		series := firstGroup(seriesInText, inner)
		image := firstGroup(imageInText, inner)
		if series == "" && image == "" {
			return match
		}

		for i, f := range supplied {
			if referenceMatches(f, series, image) {
				present[i] = true
				return " " + f.Reference()
			}
		}
		return ""
	})

	for i, f := range supplied {
		if !present[i] && !strings.Contains(out, f.Reference()) {
			out = appendReference(out, f.Reference())
		}
	}

	return strings.TrimSpace(out)
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// referenceMatches accepts a partial citation of a supplied reference
func referenceMatches(f model.Finding, series, image string) bool {
	if series != "" && !strings.EqualFold(series, f.Series) {
		return false
	}
	if image != "" && !strings.EqualFold(image, f.Image) {
		return false
	}
	return true
}

// appendReference places ref before the closing period of text
func appendReference(text, ref string) string {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, ".") {
		return strings.TrimSuffix(text, ".") + " " + ref + "."
	}
	return text + " " + ref
}
