package extract

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/joseph-ayodele/invoice-ocr/internal/template"
	"github.com/joseph-ayodele/invoice-ocr/internal/utils"
)

// MatchOptions controls the cleanup applied to a matched value.
type MatchOptions struct {
	CleanHTML      bool
	CleanNonDigits bool
	Length         int // applied only with CleanNonDigits; 0 = no cap
}

// OptionsFor returns the match options declared on a field spec.
func OptionsFor(spec template.FieldSpec) MatchOptions {
	return MatchOptions{
		CleanHTML:      spec.CleanHTML,
		CleanNonDigits: spec.CleanNonDigits,
		Length:         spec.Length,
	}
}

// MatchTimeout bounds a single pattern evaluation.
const MatchTimeout = 2 * time.Second

const patternFlags = regexp2.IgnoreCase | regexp2.Singleline

var (
	reBreakTag  = regexp.MustCompile(`<br\s*/?>`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
	reLineBreak = regexp.MustCompile(`[\r\n]+`)

	pythonNamedGroup = strings.NewReplacer("(?P<", "(?<", "(?P=", `\k<`)
)

type compiled struct {
	re  *regexp2.Regexp
	err error
}

var patternCache sync.Map // pattern string -> compiled

// compilePattern compiles a template pattern once. Failures are cached too so
// a bad pattern is not recompiled on every page.
func compilePattern(pattern string) (*regexp2.Regexp, error) {
	if c, ok := patternCache.Load(pattern); ok {
		cc := c.(compiled)
		return cc.re, cc.err
	}
	src := pythonNamedGroup.Replace(pattern)
	if strings.Contains(src, `\k<`) {
		src = closeBackrefs(src)
	}
	re, err := regexp2.Compile(src, patternFlags)
	if re != nil {
		re.MatchTimeout = MatchTimeout
	}
	patternCache.Store(pattern, compiled{re: re, err: err})
	return re, err
}

// closeBackrefs turns "\k<name)" produced from "(?P=name)" into "\k<name>".
func closeBackrefs(s string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, `\k<`)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i+3])
		s = s[i+3:]
		if j := strings.IndexAny(s, ">)"); j >= 0 {
			b.WriteString(s[:j])
			b.WriteByte('>')
			s = s[j+1:]
		}
	}
}

// Match tries patterns in order and returns the first non-empty cleaned
// value. An empty result means the field is absent. Patterns that do not
// compile or whose evaluation fails are skipped.
func Match(text string, patterns []string, opts MatchOptions) string {
	if text == "" || len(patterns) == 0 {
		return ""
	}
	for _, p := range patterns {
		raw, ok := matchOne(text, p)
		if !ok {
			continue
		}
		if v := cleanValue(raw, opts); v != "" {
			return v
		}
	}
	return ""
}

// matchOne returns group 1 when the pattern captured it, or the whole match
// when no group captured anything. A match where group 1 did not take part
// but a later group did is treated as unusable.
func matchOne(text, pattern string) (string, bool) {
	re, err := compilePattern(pattern)
	if err != nil {
		return "", false
	}
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	groups := m.Groups()
	if len(groups) < 2 {
		return m.String(), true
	}
	if len(groups[1].Captures) > 0 {
		return groups[1].String(), true
	}
	for _, g := range groups[2:] {
		if len(g.Captures) > 0 {
			return "", false
		}
	}
	return m.String(), true
}

func cleanValue(v string, opts MatchOptions) string {
	if opts.CleanHTML {
		v = reBreakTag.ReplaceAllString(v, " ")
		v = reTag.ReplaceAllString(v, "")
	}
	v = reLineBreak.ReplaceAllString(v, " ")
	v = utils.CollapseSpace(v)
	if opts.CleanNonDigits {
		v = utils.DigitsOnly(v)
		v = utils.TruncateRunes(v, opts.Length)
	}
	return v
}
