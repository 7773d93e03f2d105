package categorize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
)

// LungSection receives every lung-field finding regardless of where the model
// put it
const LungSection model.SectionKey = "lower_chest"

var lungPattern = regexp.MustCompile(`(?i)\b(lungs?|pulmonary|atelecta(sis|tic)|bibasilar|basilar|pleural|subpleural|pneumothorax|lingular?|consolidation|ground[- ]glass|emphysema(tous)?|bronchiectasis|(upper|middle|lower)[- ]lobes?|[rl][ulm]l)\b`)

// IsLungFinding reports whether a finding describes the lung fields
func IsLungFinding(text string) bool {
	return lungPattern.MatchString(text)
}

// decode converts the reply object into findings. Sections with an
// unusable value are dropped individually. A reply that wraps the mapping
// in a single envelope key ({"findings": {...}}) is unwrapped.
func decode(obj map[string]json.RawMessage, cat *catalog.Catalog) (model.CategorizedFindings, error) {
	if obj == nil {
		return nil, errors.New("reply has no JSON object")
	}

	if len(obj) == 1 {
		for key, value := range obj {
			if cat.Has(model.SectionKey(key)) {
				break
			}
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(value, &inner); err == nil && containsSection(inner, cat) {
				obj = inner
			}
		}
	}

	out := make(model.CategorizedFindings, len(obj))
	var failed []string
	for key, value := range obj {
		single, err := json.Marshal(map[string]json.RawMessage{key: value})
		if err != nil {
			failed = append(failed, key)
			continue
		}
		var one model.CategorizedFindings
		if err := json.Unmarshal(single, &one); err != nil {
			failed = append(failed, key)
			continue
		}
		for k, findings := range one {
			out[k] = findings
		}
	}

	if len(out) == 0 && len(failed) > 0 {
		return nil, fmt.Errorf("no section in the reply could be decoded (%s)", strings.Join(failed, ", "))
	}
	return out, nil
}

func containsSection(obj map[string]json.RawMessage, cat *catalog.Catalog) bool {
	for key := range obj {
		if cat.Has(model.SectionKey(key)) {
			return true
		}
	}
	return false
}

// sanitize enforces the categorization invariants on a decoded reply: only
// catalog keys, lung findings in the lung section, each finding text under
// exactly one key (first in catalog order wins), no finding or reference
// that is absent from the dictation. A finding counts as present when it
// shares any word, number or abbreviation with the dictation.
func (c *Categorizer) sanitize(findings model.CategorizedFindings, dictation string) model.CategorizedFindings {
	for key, list := range findings {
		if !c.catalog.Has(key) {
			c.logger.Warn("dropping findings for unknown section",
				zap.String("section", string(key)),
				zap.Int("findings", len(list)),
			)
		}
	}

	vocab := newVocabulary(dictation)
	lungTarget := c.catalog.Has(LungSection)
	seen := make(map[string]bool)
	out := make(model.CategorizedFindings)

	for _, key := range c.catalog.Keys() {
		for _, f := range findings[key] {
			f.Text = strings.TrimSpace(f.Text)
			if f.Text == "" {
				continue
			}

			norm := normalizeText(f.Text)
			if seen[norm] {
				c.logger.Debug("dropping duplicate finding", zap.String("section", string(key)), zap.String("finding", f.Text))
				continue
			}

			if !grounded(f.Text, vocab) {
				c.logger.Warn("dropping finding not present in dictation",
					zap.String("section", string(key)),
					zap.String("finding", f.Text),
				)
				continue
			}
			seen[norm] = true

			f = c.verifyReferences(key, f, dictation)

			target := key
			if lungTarget && key != LungSection && IsLungFinding(f.Text) {
				c.logger.Debug("routing lung finding to lower chest", zap.String("from", string(key)), zap.String("finding", f.Text))
				target = LungSection
			}
			out[target] = append(out[target], f)
		}
	}

	return out
}

// verifyReferences clears series/image values the dictation never states
func (c *Categorizer) verifyReferences(key model.SectionKey, f model.Finding, dictation string) model.Finding {
	if f.Series != "" && f.Image != "" && slashReference(f.Series, f.Image).MatchString(dictation) {
		return f
	}
	if f.Series != "" && !referencePattern(seriesLabel, f.Series).MatchString(dictation) {
		c.logger.Warn("clearing series reference absent from dictation",
			zap.String("section", string(key)),
			zap.String("series", f.Series),
		)
		f.Series = ""
	}
	if f.Image != "" && !referencePattern(imageLabel, f.Image).MatchString(dictation) {
		c.logger.Warn("clearing image reference absent from dictation",
			zap.String("section", string(key)),
			zap.String("image", f.Image),
		)
		f.Image = ""
	}
	return f
}

const (
	seriesLabel = `(?:series|ser|se)`
	imageLabel  = `(?:images?|img|im)`
)

func referencePattern(label, value string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + label + `\.?\s*(?:#|no\.?|number)?\s*:?\s*` + regexp.QuoteMeta(value) + `\b`)
}

// slashReference matches the "4/76" shorthand for series 4, image 76
func slashReference(series, image string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(series) + `\s*/\s*` + regexp.QuoteMeta(image) + `\b`)
}

var (
	tokenSplit = regexp.MustCompile(`[^a-z0-9.]+`)
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// vocabulary is what a finding may be grounded on: the dictation's words,
// its numbers and the initials of its word runs
type vocabulary struct {
	words    map[string]bool
	numbers  map[string]bool
	initials map[string]bool
	plain    []string
}

func newVocabulary(text string) vocabulary {
	v := vocabulary{
		words:    make(map[string]bool),
		numbers:  make(map[string]bool),
		initials: make(map[string]bool),
	}
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		tok = strings.Trim(tok, ".")
		if tok == "" {
			continue
		}
		if tok[0] >= '0' && tok[0] <= '9' {
			// measurements: "4.5", "5mm", "3.2x4.5x9.0"
			for _, n := range numberRe.FindAllString(tok, -1) {
				v.numbers[n] = true
			}
			continue
		}
		if strings.ContainsAny(tok, "0123456789") {
			// levels and labels such as "l1" or "t12"
			v.words[tok] = true
			continue
		}
		if len(tok) >= 3 {
			v.words[tok] = true
		}
		v.plain = append(v.plain, tok)
	}
	for i := range v.plain {
		initials := ""
		for j := i; j < len(v.plain) && j < i+5; j++ {
			initials += v.plain[j][:1]
			if j > i {
				v.initials[initials] = true
			}
		}
	}
	return v
}

// abbreviations are the short all-letter words an acronym could be
func (v vocabulary) abbreviations() []string {
	var out []string
	for _, w := range v.plain {
		if len(w) >= 2 && len(w) <= 5 {
			out = append(out, w)
		}
	}
	return out
}

// grounded reports whether a finding shares a word or a number with the
// dictation, or abbreviates or expands one of its phrases ("AAA" and
// "abdominal aortic aneurysm"). The model may rephrase, but a finding with
// none of these was invented.
func grounded(text string, dictation vocabulary) bool {
	finding := newVocabulary(text)
	if len(finding.words) == 0 && len(finding.numbers) == 0 && len(finding.plain) == 0 {
		return true
	}
	for w := range finding.words {
		if dictation.words[w] {
			return true
		}
	}
	for n := range finding.numbers {
		if dictation.numbers[n] {
			return true
		}
	}
	for _, a := range finding.abbreviations() {
		if dictation.initials[a] {
			return true
		}
	}
	for _, a := range dictation.abbreviations() {
		if finding.initials[a] {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
