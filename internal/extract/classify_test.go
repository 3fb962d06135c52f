package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-ocr/internal/template"
)

func classifierSet() *template.Set {
	return template.NewSet([]template.Template{
		{Code: "receipt", Name: "Receipt", DetectKeywords: []string{"ใบเสร็จรับเงิน", "receipt"}},
		{Code: "invoice", Name: "Invoice", DetectKeywords: []string{"ใบกำกับภาษี", "tax invoice"}},
		{Code: "credit_note", Name: "Credit Note", DetectKeywords: []string{"ใบลดหนี้", "credit note", "", "CREDIT NOTE"}},
	}, nil)
}

func TestClassify(t *testing.T) {
	set := classifierSet()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single hit", "TAX INVOICE no 1", "invoice"},
		{"highest score", "ใบกำกับภาษี / Tax Invoice / Receipt", "invoice"},
		{"tie goes to earlier template", "Receipt ... Tax Invoice", "receipt"},
		{"repeated keyword counts once", "receipt receipt receipt ใบกำกับภาษี tax invoice", "invoice"},
		{"duplicate keyword in template counts once", "credit note receipt", "receipt"},
		{"no hits", "hello world", "invoice"},
		{"empty text", "", "invoice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, set))
		})
	}
}

func TestClassify_NoTemplates(t *testing.T) {
	assert.Equal(t, "invoice", Classify("receipt", nil))
	assert.Equal(t, "invoice", Classify("receipt", template.NewSet(nil, nil)))
}

func TestResolveType(t *testing.T) {
	set := classifierSet()
	assert.Equal(t, "credit_note", ResolveType("receipt", set, "credit_note"))
	assert.Equal(t, "invoice", ResolveType("receipt", set, "unknown"))
	assert.Equal(t, "receipt", ResolveType("receipt", set, "auto"))
	assert.Equal(t, "receipt", ResolveType("receipt", set, ""))
	assert.Equal(t, "receipt", ResolveType("receipt", set, "AUTO"))
}
