// Package template holds the document templates that drive field extraction:
// per-type detection keywords, ordered field definitions and the config for
// the common tax ID and branch fields.
package template

import (
	"github.com/joseph-ayodele/invoice-ocr/constants"
)

// FieldSpec describes how one field is pulled out of page text.
type FieldSpec struct {
	Patterns       []string `yaml:"patterns" json:"patterns"`
	CleanHTML      bool     `yaml:"clean_html" json:"clean_html"`
	CleanNonDigits bool     `yaml:"clean_non_digits" json:"clean_non_digits"`
	Length         int      `yaml:"length" json:"length,omitempty"` // 0 = no cap
	Fallback       string   `yaml:"fallback" json:"fallback,omitempty"`
}

// Field is a named FieldSpec. Templates keep fields in declaration order.
type Field struct {
	Name string
	Spec FieldSpec
}

// Template is the configuration bundle for one document type.
type Template struct {
	Code           string
	Name           string
	DetectKeywords []string
	Fields         []Field
}

// DisplayName returns the template name, or the code when the name is blank.
func (t Template) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Code
}

// TaxIDConfig lists the keyword-anchored tax ID patterns.
type TaxIDConfig struct {
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// BranchConfig controls branch code output.
type BranchConfig struct {
	Patterns  []string `yaml:"patterns" json:"patterns"`
	DefaultHQ string   `yaml:"default_hq" json:"default_hq"`
	PadZeros  int      `yaml:"pad_zeros" json:"pad_zeros"`
}

// CommonFieldsConfig configures tax ID and branch extraction.
type CommonFieldsConfig struct {
	TaxID  TaxIDConfig  `yaml:"tax_id" json:"tax_id"`
	Branch BranchConfig `yaml:"branch" json:"branch"`
}

// DefaultCommonFields is the config used when no template document is loaded.
func DefaultCommonFields() *CommonFieldsConfig {
	return &CommonFieldsConfig{
		Branch: BranchConfig{
			DefaultHQ: constants.HeadOfficeBranch,
			PadZeros:  constants.BranchPadWidth,
		},
	}
}

func (c *CommonFieldsConfig) applyDefaults() {
	if c.Branch.DefaultHQ == "" {
		c.Branch.DefaultHQ = constants.HeadOfficeBranch
	}
	if c.Branch.PadZeros <= 0 {
		c.Branch.PadZeros = constants.BranchPadWidth
	}
}

// Set is an ordered, read-only collection of templates. The zero value and a
// nil *Set both behave as an empty set.
type Set struct {
	templates []Template
	index     map[string]int
	common    *CommonFieldsConfig
}

// NewSet builds a Set from templates in the given order. Later duplicates of
// a code are ignored. A nil common config means the document had none.
func NewSet(templates []Template, common *CommonFieldsConfig) *Set {
	s := &Set{index: make(map[string]int, len(templates))}
	for _, t := range templates {
		if _, dup := s.index[t.Code]; dup {
			continue
		}
		s.index[t.Code] = len(s.templates)
		s.templates = append(s.templates, cloneTemplate(t))
	}
	if common != nil {
		c := *common
		c.TaxID.Patterns = append([]string(nil), common.TaxID.Patterns...)
		c.Branch.Patterns = append([]string(nil), common.Branch.Patterns...)
		c.applyDefaults()
		s.common = &c
	}
	return s
}

// Len returns the number of templates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.templates)
}

// Empty reports whether the set has no templates.
func (s *Set) Empty() bool { return s.Len() == 0 }

// Templates returns the templates in declaration order.
func (s *Set) Templates() []Template {
	if s == nil {
		return nil
	}
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// Codes returns the template codes in declaration order.
func (s *Set) Codes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Code)
	}
	return out
}

// Lookup returns the template registered under code. The returned value
// shares slices with the set and must not be modified.
func (s *Set) Lookup(code string) (Template, bool) {
	if s == nil {
		return Template{}, false
	}
	i, ok := s.index[code]
	if !ok {
		return Template{}, false
	}
	return s.templates[i], true
}

// Has reports whether code names a template in the set.
func (s *Set) Has(code string) bool {
	_, ok := s.Lookup(code)
	return ok
}

// Common returns the common-field config, or nil when the document had none.
func (s *Set) Common() *CommonFieldsConfig {
	if s == nil {
		return nil
	}
	return s.common
}

// FieldNames returns every non-slot field name across all templates, first
// occurrence order. Used to lay out extra summary columns.
func (s *Set) FieldNames() []string {
	if s == nil {
		return nil
	}
	seen := map[string]struct{}{
		constants.FieldDocumentNo: {},
		constants.FieldDate:       {},
		constants.FieldAmount:     {},
	}
	var out []string
	for _, t := range s.templates {
		for _, f := range t.Fields {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			out = append(out, f.Name)
		}
	}
	return out
}

func cloneTemplate(t Template) Template {
	c := t
	c.DetectKeywords = append([]string(nil), t.DetectKeywords...)
	c.Fields = make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		c.Fields[i] = Field{Name: f.Name, Spec: f.Spec}
		c.Fields[i].Spec.Patterns = append([]string(nil), f.Spec.Patterns...)
	}
	return c
}
