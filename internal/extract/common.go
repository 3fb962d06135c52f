package extract

import (
	"github.com/dlclark/regexp2"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
	"github.com/joseph-ayodele/invoice-ocr/internal/utils"
)

// CommonFields are the type-independent fields used as the vendor join key.
type CommonFields struct {
	TaxID  string `json:"tax_id"`
	Branch string `json:"branch"`
}

// Digit runs are bounded by letters, digits and underscore only. Thai
// vowel and tone marks (category Mn) count as boundaries, so a number glued
// to a label such as "ภาษี0105551234567" is still found.
const (
	notWordBefore = `(?<![\p{L}\p{N}_])`
	notWordAfter  = `(?![\p{L}\p{N}_])`
)

var (
	reTaxID13     = mustCompile(notWordBefore+`(\d{13})`+notWordAfter, regexp2.None)
	reTaxIDDashed = mustCompile(notWordBefore+`\d{1}-\d{4}-\d{5}-\d{2}-\d{1}`+notWordAfter, regexp2.None)
	reHeadOffice  = mustCompile(constants.HeadOfficePattern, regexp2.IgnoreCase)
	reBranchNo    = mustCompile(`(?:สาขา(?:ที่)?|Branch(?:\s*No\.?)?)\s*[:\.]?\s*(\d{1,5})`, regexp2.IgnoreCase)
)

func mustCompile(pattern string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = MatchTimeout
	return re
}

// step is one link of an extraction chain. It reports whether it produced
// the value; the chain stops at the first step that does.
type step func(text string) (string, bool)

func runChain(text string, steps ...step) string {
	for _, s := range steps {
		if v, ok := s(text); ok {
			return v
		}
	}
	return ""
}

// ExtractCommon pulls tax ID and branch out of text. Both are empty when
// text is empty or cfg is nil.
func ExtractCommon(text string, cfg *template.CommonFieldsConfig) CommonFields {
	if text == "" || cfg == nil {
		return CommonFields{}
	}
	hq := cfg.Branch.DefaultHQ
	if hq == "" {
		hq = constants.HeadOfficeBranch
	}
	pad := cfg.Branch.PadZeros
	if pad <= 0 {
		pad = constants.BranchPadWidth
	}
	return CommonFields{
		TaxID: runChain(text,
			taxIDStandalone,
			taxIDDashed,
			taxIDByPatterns(cfg.TaxID.Patterns),
		),
		Branch: runChain(text,
			headOffice(hq),
			branchNumber(pad),
		),
	}
}

// taxIDStandalone takes the first word-bounded 13-digit run.
func taxIDStandalone(text string) (string, bool) {
	m, err := reTaxID13.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	return m.GroupByNumber(1).String(), true
}

// taxIDDashed recognises the printed 1-4-5-2-1 layout.
func taxIDDashed(text string) (string, bool) {
	m, err := reTaxIDDashed.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	return utils.DigitsOnly(m.String()), true
}

// taxIDByPatterns tries keyword-anchored patterns and accepts a result with
// at least MinTaxIDDigits digits, which tolerates a few misread characters.
func taxIDByPatterns(patterns []string) step {
	opts := MatchOptions{CleanNonDigits: true, Length: constants.TaxIDLength}
	return func(text string) (string, bool) {
		for _, p := range patterns {
			v := Match(text, []string{p}, opts)
			if len([]rune(v)) >= constants.MinTaxIDDigits {
				return v, true
			}
		}
		return "", false
	}
}

// headOffice wins over any branch number in the same text.
func headOffice(code string) step {
	return func(text string) (string, bool) {
		ok, err := reHeadOffice.MatchString(text)
		if err != nil || !ok {
			return "", false
		}
		return code, true
	}
}

func branchNumber(width int) step {
	return func(text string) (string, bool) {
		m, err := reBranchNo.FindStringMatch(text)
		if err != nil || m == nil {
			return "", false
		}
		return utils.ZeroPad(m.GroupByNumber(1).String(), width), true
	}
}

// IsHeadOffice reports whether s carries a head-office marker.
func IsHeadOffice(s string) bool {
	ok, err := reHeadOffice.MatchString(s)
	return err == nil && ok
}
