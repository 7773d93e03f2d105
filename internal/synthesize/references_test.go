package synthesize

import (
	"testing"

	"github.com/PACSamericana/poly/internal/model"
)

func TestGuardReferences(t *testing.T) {
	mass := model.Finding{Text: "right adnexal mass", Series: "4", Image: "76"}
	cyst := model.Finding{Text: "renal cyst"}

	tests := []struct {
		name     string
		text     string
		findings []model.Finding
		want     string
	}{
		{
			name:     "canonical kept",
			text:     "There is a right adnexal mass (Series 4, Image 76).",
			findings: []model.Finding{mass},
			want:     "There is a right adnexal mass (Series 4, Image 76).",
		},
		{
			name:     "variant canonicalized",
			text:     "There is a right adnexal mass (series 4 image 76).",
			findings: []model.Finding{mass},
			want:     "There is a right adnexal mass (Series 4, Image 76).",
		},
		{
			name:     "partial citation completed",
			text:     "There is a right adnexal mass (Se 4).",
			findings: []model.Finding{mass},
			want:     "There is a right adnexal mass (Series 4, Image 76).",
		},
		{
			name:     "missing reference appended",
			text:     "There is a right adnexal mass.",
			findings: []model.Finding{mass},
			want:     "There is a right adnexal mass (Series 4, Image 76).",
		},
		{
			name:     "missing reference appended without period",
			text:     "Right adnexal mass",
			findings: []model.Finding{mass},
			want:     "Right adnexal mass (Series 4, Image 76)",
		},
		{
			name:     "fabricated reference removed",
			text:     "Simple renal cyst (Series 2, Image 45). No hydronephrosis.",
			findings: []model.Finding{cyst},
			want:     "Simple renal cyst. No hydronephrosis.",
		},
		{
			name:     "wrong image removed and correct appended",
			text:     "There is a right adnexal mass (Series 4, Image 12).",
			findings: []model.Finding{mass},
			want:     "There is a right adnexal mass (Series 4, Image 76).",
		},
		{
			name:     "unrelated parenthetical untouched",
			text:     "Mild hydronephrosis (see above) and a 5 mm stone (unchanged).",
			findings: []model.Finding{cyst},
			want:     "Mild hydronephrosis (see above) and a 5 mm stone (unchanged).",
		},
		{
			name:     "series only reference",
			text:     "Mass in the pelvis.",
			findings: []model.Finding{{Text: "pelvic mass", Series: "3"}},
			want:     "Mass in the pelvis (Series 3).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuardReferences(tt.text, tt.findings); got != tt.want {
				t.Errorf("GuardReferences() = %q, want %q", got, tt.want)
			}
		})
	}
}
