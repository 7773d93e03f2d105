package synthesize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PACSamericana/poly/internal/model"
)

var normalMarkers = map[string]bool{"normal": true, "normally": true, "unremarkable": true}

var wordSplit = regexp.MustCompile(`[^a-z0-9]+`)

// genericTerms never identify a finding on their own
var genericTerms = map[string]bool{
	"with": true, "without": true, "from": true, "there": true, "this": true,
	"that": true, "than": true, "which": true, "also": true, "into": true,
	"left": true, "right": true, "bilateral": true, "both": true,
	"mild": true, "mildly": true, "moderate": true, "severe": true,
	"minimal": true, "trace": true, "small": true, "large": true, "tiny": true,
	"increased": true, "decreased": true, "increase": true, "decrease": true,
	"previously": true, "prior": true, "since": true, "interval": true,
	"stable": true, "unchanged": true, "new": true, "measuring": true,
	"measures": true, "size": true, "sized": true, "appearing": true,
	"normal": true, "unremarkable": true, "otherwise": true, "noted": true,
	"seen": true, "likely": true, "possible": true, "probable": true,
	"consistent": true, "compatible": true, "series": true, "image": true,
	"too": true, "characterize": true, "within": true, "along": true,
	"upper": true, "lower": true, "anterior": true, "posterior": true,
}

// anatomyTerms name structures rather than findings
var anatomyTerms = map[string]bool{
	"liver": true, "hepatic": true, "renal": true, "kidney": true, "kidneys": true,
	"splenic": true, "spleen": true, "pancreas": true, "pancreatic": true,
	"biliary": true, "gallbladder": true, "adrenal": true, "pelvic": true,
	"pelvis": true, "abdominal": true, "abdomen": true, "bowel": true,
	"colon": true, "colonic": true, "gastric": true, "ureter": true,
	"ureteral": true, "bladder": true, "uterus": true, "uterine": true,
	"ovary": true, "ovarian": true, "adnexa": true, "adnexal": true,
	"prostate": true, "osseous": true, "vertebral": true, "lymph": true,
	"node": true, "nodes": true, "aorta": true, "aortic": true, "lobe": true,
}

var negators = map[string]bool{"no": true, "without": true, "not": true, "negative": true}

var sideWords = map[string]bool{"left": true, "right": true, "contralateral": true}

var copulas = map[string]bool{"is": true, "are": true, "appears": true, "appear": true, "remains": true, "remain": true}

// modifiers may sit between a normal marker and the structure it governs
var modifiers = map[string]bool{
	"appearing": true, "the": true, "left": true, "right": true, "contralateral": true,
	"bilateral": true, "urinary": true, "common": true,
}

// structureOf folds adjectives and plurals onto one organ name
var structureOf = map[string]string{
	"hepatic": "liver", "renal": "kidney", "kidneys": "kidney", "splenic": "spleen",
	"pancreatic": "pancreas", "ureteral": "ureter", "ureters": "ureter",
	"uterine": "uterus", "ovarian": "ovary", "ovaries": "ovary", "adnexal": "adnexa",
	"aortic": "aorta", "colonic": "colon", "gastric": "stomach", "adrenals": "adrenal",
	"prostatic": "prostate", "vesical": "bladder", "gallbladders": "gallbladder",
}

func structure(w string) string {
	if s, ok := structureOf[w]; ok {
		return s
	}
	return w
}

// CheckConsistency rejects merged text in which a normal marker governs the
// structure the findings describe. A sentence fails when it calls something
// normal while naming a finding term outside a negation ("without
// hydronephrosis" is fine), or when it calls the abnormal structure normal
// outright ("Normal-appearing pancreas." next to "Mild fatty atrophy.").
// A marker that governs the other side ("normal-appearing right kidney"
// beside a left renal calculus) is skipped.
func CheckConsistency(key model.SectionKey, text string, findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	terms := findingTerms(key, findings)
	structures := findingStructures(key, findings)
	sides := findingSides(findings)

	for _, sentence := range splitSentences(text) {
		ws := words(sentence)
		for m, w := range ws {
			if !normalMarkers[w] || otherSide(ws, m, sides) {
				continue
			}
			if term := termIn(ws, terms); term != "" {
				return &ConsistencyError{Section: key, Sentence: sentence, Term: term}
			}
			if name := calledNormal(ws, m, structures); name != "" {
				return &ConsistencyError{Section: key, Sentence: sentence, Term: name}
			}
		}
	}
	return nil
}

func termIn(ws []string, terms map[string]bool) string {
	for i, word := range ws {
		if terms[word] && !negated(ws, i) {
			return word
		}
	}
	return ""
}

// negated reports whether one of the three words before ws[i] is a negator
func negated(ws []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-3; j-- {
		if negators[ws[j]] {
			return true
		}
	}
	return false
}

// governedSide returns the side word the marker at m applies to: the one
// right after it ("normal-appearing right kidney") or, after a copula, the
// one in the subject ("the left kidney is normal")
func governedSide(ws []string, m int) string {
	for j := m + 1; j < len(ws) && j <= m+3; j++ {
		if sideWords[ws[j]] {
			return ws[j]
		}
	}
	if m > 0 && copulas[ws[m-1]] {
		for j := m - 2; j >= 0 && j >= m-4; j-- {
			if sideWords[ws[j]] {
				return ws[j]
			}
		}
	}
	return ""
}

// otherSide reports a marker that governs a side none of the findings are on
func otherSide(ws []string, m int, sides map[string]bool) bool {
	if len(sides) == 0 || sides["bilateral"] {
		return false
	}
	side := governedSide(ws, m)
	return side != "" && !sides[side]
}

// calledNormal returns the structure the marker at m declares normal without
// qualification: "normal-appearing pancreas." or "the pancreas is
// unremarkable." A qualified marker ("normal in size", "normal-sized") or one
// followed by further description returns "".
func calledNormal(ws []string, m int, structures map[string]bool) string {
	bare := func(rest []string) bool {
		return len(rest) == 0 || negators[rest[0]]
	}

	j := m + 1
	for j < len(ws) && modifiers[ws[j]] {
		j++
	}
	if j < len(ws) && structures[structure(ws[j])] && bare(ws[j+1:]) {
		return ws[j]
	}

	if m > 0 && copulas[ws[m-1]] && bare(ws[m+1:]) {
		for k := m - 2; k >= 0 && k >= m-4; k-- {
			if structures[structure(ws[k])] {
				return ws[k]
			}
		}
	}
	return ""
}

func findingTerms(key model.SectionKey, findings []model.Finding) map[string]bool {
	keyWords := make(map[string]bool)
	for _, w := range words(string(key)) {
		keyWords[w] = true
	}

	terms := make(map[string]bool)
	for _, f := range findings {
		for _, w := range words(f.Text) {
			if len(w) < 4 || genericTerms[w] || anatomyTerms[w] || keyWords[w] || strings.IndexFunc(w, unicode.IsDigit) >= 0 {
				continue
			}
			terms[w] = true
		}
	}
	return terms
}

// findingStructures names the organs the findings are about: the section
// itself when it is a single organ, plus any organ a finding names
func findingStructures(key model.SectionKey, findings []model.Finding) map[string]bool {
	out := make(map[string]bool)
	var organs []string
	for _, w := range words(string(key)) {
		if w != "and" && !modifiers[w] {
			organs = append(organs, w)
		}
	}
	if len(organs) == 1 {
		out[structure(organs[0])] = true
	}
	for _, f := range findings {
		for _, w := range words(f.Text) {
			if anatomyTerms[w] {
				out[structure(w)] = true
			}
		}
	}
	return out
}

func findingSides(findings []model.Finding) map[string]bool {
	sides := make(map[string]bool)
	for _, f := range findings {
		for _, w := range words(f.Text) {
			if w == "left" || w == "right" || w == "bilateral" {
				sides[w] = true
			}
		}
	}
	return sides
}

func words(s string) []string {
	var out []string
	for _, w := range wordSplit.Split(strings.ToLower(s), -1) {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// splitSentences splits on terminal punctuation followed by whitespace, so
// decimals such as "3.2 cm" stay intact
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
