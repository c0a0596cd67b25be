// Package evaluation scores extracted on-screen text against a reference transcript.
package evaluation

import (
	"strings"
	"unicode/utf8"

	"github.com/anime-shed/lecture-indexer-go/pkg/models"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Normalize lowercases text and collapses all whitespace runs to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Compare scores hypothesis against reference after normalizing both.
// With an empty reference any output counts as a full error.
func Compare(reference, hypothesis string) models.OCRAccuracy {
	ref := Normalize(reference)
	hyp := Normalize(hypothesis)
	refWords := strings.Fields(ref)
	hypWords := strings.Fields(hyp)

	acc := models.OCRAccuracy{
		ReferenceWords: len(refWords),
		EditDistance:   levenshtein.Distance(ref, hyp),
	}

	if len(refWords) == 0 {
		if len(hypWords) > 0 {
			acc.WER = 1
			acc.CER = 1
		}
		return acc
	}

	acc.WER, _ = wer.WER(refWords, hypWords)
	acc.CER = float64(acc.EditDistance) / float64(utf8.RuneCountInString(ref))
	return acc
}

// CompareReport scores the deduplicated text of a report.
func CompareReport(report *models.Report, reference string) models.OCRAccuracy {
	return Compare(reference, strings.Join(report.ExtractedText, " "))
}
