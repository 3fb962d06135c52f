package extract

import (
	"bytes"
	"encoding/json"

	"github.com/dlclark/regexp2"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
)

// Result is the structured record extracted from one page of text.
type Result struct {
	DocumentType     string      `json:"document_type"`
	DocumentTypeName string      `json:"document_type_name"`
	DocumentNo       string      `json:"document_no"`
	Date             string      `json:"date"`
	Amount           string      `json:"amount"`
	TaxID            string      `json:"tax_id"`
	Branch           string      `json:"branch"`
	Extra            ExtraFields `json:"extra_fields"`
}

// ExtraFields keeps non-slot field values in template declaration order.
type ExtraFields struct {
	names  []string
	values map[string]string
}

// Set stores value under name, keeping the first insertion position.
func (e *ExtraFields) Set(name, value string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[name]; !ok {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

// Get returns the value stored under name.
func (e ExtraFields) Get(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Names returns field names in insertion order.
func (e ExtraFields) Names() []string {
	return append([]string(nil), e.names...)
}

func (e ExtraFields) Len() int { return len(e.names) }

// MarshalJSON writes an object whose keys follow insertion order.
func (e ExtraFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range e.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.values[n])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var (
	reAmountToken = mustCompile(constants.AmountPattern, regexp2.None)

	reBasicDocNo  = mustCompile(`เลขที่\s*[:\.]?\s*([A-Za-z0-9\-\/]{3,})`, regexp2.None)
	reBasicDate   = mustCompile(`วันที่\s*[:\.]?\s*(\d{1,2}\s+[^\s]+\s+\d{4}|\d{1,2}[\/\-\.]\d{1,2}[\/\-\.]\d{2,4})`, regexp2.None)
	reBasicAmount = mustCompile(`(?:จำนวนเงินรวมทั้งสิ้น|รวมเงินทั้งสิ้น|GRAND TOTAL)\s*[:\.]?\s*([\d,]+\.\d{2})`, regexp2.IgnoreCase)
)

// Parse extracts a Result from page text. A nil set, or one with neither
// templates nor common_fields, selects the built-in basic extraction. A set
// with only common_fields yields tax ID and branch under the default type.
// requested may name a template code, or be "" or "auto" for classification.
func Parse(text string, set *template.Set, requested string) Result {
	if text == "" {
		return Result{}
	}
	if set.Empty() && set.Common() == nil {
		return parseBasic(text)
	}

	docType := ResolveType(text, set, requested)
	tmpl, ok := set.Lookup(docType)
	if !ok {
		tmpl = template.Template{Code: docType}
	}

	common := ExtractCommon(text, set.Common())
	res := Result{
		DocumentType:     docType,
		DocumentTypeName: tmpl.DisplayName(),
		TaxID:            common.TaxID,
		Branch:           common.Branch,
	}

	for _, f := range tmpl.Fields {
		value := Match(text, f.Spec.Patterns, OptionsFor(f.Spec))
		if value == "" && f.Spec.Fallback == constants.FallbackLastAmount {
			value = LastAmount(text)
		}
		switch f.Name {
		case constants.FieldDocumentNo:
			res.DocumentNo = value
		case constants.FieldDate:
			res.Date = value
		case constants.FieldAmount:
			res.Amount = value
		default:
			res.Extra.Set(f.Name, value)
		}
	}
	return res
}

func parseBasic(text string) Result {
	common := ExtractCommon(text, template.DefaultCommonFields())
	res := Result{
		DocumentType:     constants.DefaultDocumentType,
		DocumentTypeName: constants.DefaultDocumentTypeName,
		DocumentNo:       firstGroup(reBasicDocNo, text),
		Date:             firstGroup(reBasicDate, text),
		Amount:           firstGroup(reBasicAmount, text),
		TaxID:            common.TaxID,
		Branch:           common.Branch,
	}
	if res.Amount == "" {
		res.Amount = LastAmount(text)
	}
	return res
}

// LastAmount returns the last money-shaped token (digits, commas, two
// decimals) in text.
func LastAmount(text string) string {
	last := ""
	m, err := reAmountToken.FindStringMatch(text)
	for err == nil && m != nil {
		last = m.GroupByNumber(1).String()
		m, err = reAmountToken.FindNextMatch(m)
	}
	return last
}

func firstGroup(re *regexp2.Regexp, text string) string {
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}
