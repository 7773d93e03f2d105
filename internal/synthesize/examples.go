package synthesize

import (
	"github.com/PACSamericana/poly/internal/model"
)

// sectionExample is a worked template merge shown to the model
type sectionExample struct {
	Template string
	Finding  model.Finding
	Output   string
}

var sectionExamples = map[model.SectionKey]sectionExample{
	"liver": {
		Template: "Normal size and attenuation with smooth surface contour. No focal hepatic lesions. Portal and hepatic veins are patent.",
		Finding:  model.Finding{Text: "low density subcentimeter left hepatic lobe cyst too small"},
		Output:   "The liver is normal in size with smooth surface contour. There is a subcentimeter low-density cyst in the left hepatic lobe. Portal and hepatic veins are patent.",
	},
	"reproductive": {
		Template: "Reproductive organs are unremarkable.",
		Finding: model.Finding{
			Text:   "3.2x4.5x9.0 cm right adnexal mass increased from prior previously 2.4 x 2.3 x 2.3 cm",
			Series: "4",
			Image:  "76",
		},
		Output: "There is a right adnexal mass measuring 3.2 x 4.5 x 9.0 cm demonstrating interval growth from prior measurement of 2.4 x 2.3 x 2.3 cm (Series 4, Image 76).",
	},
	"lymph_nodes": {
		Template: "No abnormally enlarged lymph nodes.",
		Finding:  model.Finding{Text: "increased 12 mm aortocaval lymph node previously 7mm"},
		Output:   "There is an enlarged aortocaval lymph node measuring 12 mm, increased from 7 mm on prior examination.",
	},
	"bones": {
		Template: "No suspicious osseous lesion. Age-appropriate degenerative changes.",
		Finding:  model.Finding{Text: "chronic L1 endplate fracture"},
		Output:   "There is a chronic L1 endplate fracture. No suspicious osseous lesions. Otherwise age-appropriate degenerative changes.",
	},
}
