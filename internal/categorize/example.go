package categorize

import (
	"encoding/json"

	"github.com/PACSamericana/poly/internal/model"
)

// exampleDictation and exampleOutput form the worked example shown to the
// model. Findings without a dictated reference carry null series/image.
const exampleDictation = "low density subcentimeter left hepatic lobe cyst too small, mild right hydro, bladder wall thickening, 3.2x4.5x9.0 cm right adnexal mass increased from prior previously 2.4 x 2.3 x 2.3 cm (Series 4, image 76) increased 12 mm aortocaval lymph node previously 7mm, chronic L1 endplate fracture"

type exampleFinding struct {
	Finding string  `json:"finding"`
	Series  *string `json:"series"`
	Image   *string `json:"image"`
}

func exampleOutput() map[model.SectionKey][]exampleFinding {
	series, image := "4", "76"
	plain := func(text string) []exampleFinding {
		return []exampleFinding{{Finding: text}}
	}
	return map[model.SectionKey][]exampleFinding{
		"liver":               plain("low density subcentimeter left hepatic lobe cyst too small"),
		"kidneys_and_ureters": plain("mild right hydro"),
		"urinary_bladder":     plain("bladder wall thickening"),
		"reproductive": {{
			Finding: "3.2x4.5x9.0 cm right adnexal mass increased from prior previously 2.4 x 2.3 x 2.3 cm",
			Series:  &series,
			Image:   &image,
		}},
		"lymph_nodes": plain("increased 12 mm aortocaval lymph node previously 7mm"),
		"bones":       plain("chronic L1 endplate fracture"),
	}
}

func formatExample() string {
	out, err := json.MarshalIndent(exampleOutput(), "", "  ")
	if err != nil {
		return "{}"
	}
	return "Example Input: \"" + exampleDictation + "\"\n\nExample Output:\n" + string(out)
}
