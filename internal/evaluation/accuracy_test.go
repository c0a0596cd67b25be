package evaluation

import (
	"testing"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "gradient descent step", Normalize("  Gradient\tDescent\n STEP "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		hyp       string
		wantWER   float64
		wantCER   float64
		wantDist  int
		wantWords int
	}{
		{"identical", "Linear Algebra Review", "linear  algebra review", 0, 0, 0, 3},
		{"one substituted word", "the chain rule", "the chair rule", 1.0 / 3.0, 1.0 / 14.0, 1, 3},
		{"empty hypothesis", "two words", "", 1, 1, 9, 2},
		{"empty reference and output", "", "", 0, 0, 0, 0},
		{"empty reference", "", "noise", 1, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := Compare(tt.reference, tt.hyp)
			assert.Equal(t, tt.wantWords, acc.ReferenceWords)
			assert.Equal(t, tt.wantDist, acc.EditDistance)
			assert.InDelta(t, tt.wantWER, acc.WER, 1e-9)
			assert.InDelta(t, tt.wantCER, acc.CER, 1e-9)
		})
	}
}

func TestCompareReport(t *testing.T) {
	report := &models.Report{ExtractedText: []string{"Week 1", "Intro to Go"}}
	acc := CompareReport(report, "week 1 intro to go")
	assert.Zero(t, acc.WER)
	assert.Zero(t, acc.EditDistance)
}
