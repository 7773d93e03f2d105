// Prints the prompts sent to the model for a dictation, without calling it.
// Useful when tuning the catalog or prompt wording.
//
//	preview-prompts "mild hepatic steatosis"
//	preview-prompts "mild hepatic steatosis" liver
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/categorize"
	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/synthesize"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: preview-prompts <dictation> [section]")
		os.Exit(2)
	}

	cat := catalog.Default()
	dictation := pipeline.Normalize(os.Args[1])

	fmt.Println("=== Categorization ===")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("[system]")
	fmt.Println(categorize.SystemPrompt())
	fmt.Println("[user]")
	fmt.Println(categorize.BuildPrompt(dictation, cat.Keys()))

	if len(os.Args) < 3 {
		return
	}

	section, ok := cat.Lookup(model.SectionKey(os.Args[2]))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown section %q\n", os.Args[2])
		os.Exit(1)
	}

	findings := []model.Finding{{Text: dictation}}
	if categorize.IsLungFinding(dictation) && section.Key != categorize.LungSection {
		fmt.Fprintf(os.Stderr, "note: this finding would be routed to %s\n", categorize.LungSection)
	}

	fmt.Println()
	fmt.Printf("=== Synthesis: %s ===\n", section.DisplayTitle())
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("[system]")
	fmt.Println(synthesize.SystemPrompt())
	fmt.Println("[user]")
	fmt.Println(synthesize.BuildPrompt(section, section.Normal, findings, nil))
}
