package extract

import (
	"strings"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
)

// Classify picks the document type whose detection keywords best match text.
// Each distinct keyword found (case-insensitive substring) scores one point.
// The strictly highest score wins; on a tie the template declared first
// keeps the lead. With no text, no templates or no hits the result is the
// default type.
func Classify(text string, set *template.Set) string {
	if text == "" || set.Empty() {
		return constants.DefaultDocumentType
	}
	lower := strings.ToLower(text)

	best, bestScore := constants.DefaultDocumentType, 0
	for _, t := range set.Templates() {
		if score := keywordScore(lower, t.DetectKeywords); score > bestScore {
			best, bestScore = t.Code, score
		}
	}
	return best
}

func keywordScore(lowerText string, keywords []string) int {
	seen := make(map[string]struct{}, len(keywords))
	score := 0
	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if strings.Contains(lowerText, k) {
			score++
		}
	}
	return score
}

// ResolveType honours an explicit type when the set knows it. An unknown
// explicit type falls back to the default without classifying; "" and
// "auto" ask for classification.
func ResolveType(text string, set *template.Set, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" || strings.EqualFold(requested, constants.AutoDocumentType) {
		return Classify(text, set)
	}
	if set.Has(requested) {
		return requested
	}
	return constants.DefaultDocumentType
}
