package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/template"
)

const parserTemplates = `{
  "templates": {
    "invoice": {
      "name": "ใบกำกับภาษี/Invoice",
      "detect_keywords": ["ใบกำกับภาษี", "tax invoice"],
      "fields": {
        "document_no": {"patterns": ["(?:เลขที่|No\\.)\\s*:?\\s*([A-Z0-9\\-/]+)"]},
        "po_number": {"patterns": ["PO\\s*:?\\s*([\\d\\s]+)"], "clean_non_digits": true, "length": 6},
        "date": {"patterns": ["(?:วันที่|Date)\\s*:?\\s*(\\d{1,2}/\\d{1,2}/\\d{4})"]},
        "amount": {"patterns": ["จำนวนเงินรวมทั้งสิ้น\\s*([\\d,]+\\.\\d{2})"], "fallback": "last_amount"},
        "remark": {"patterns": ["Remark:(.*?)END"], "clean_html": true}
      }
    },
    "receipt": {
      "name": "",
      "detect_keywords": ["ใบเสร็จรับเงิน", "receipt"],
      "fields": {
        "amount": {"patterns": ["Paid\\s*([\\d,]+\\.\\d{2})"]}
      }
    }
  },
  "common_fields": {
    "tax_id": {"patterns": []},
    "branch": {"default_hq": "00000", "pad_zeros": 5}
  }
}`

func loadParserSet(t *testing.T) *template.Set {
	t.Helper()
	set, err := template.Parse([]byte(parserTemplates))
	require.NoError(t, err)
	return set
}

func TestParse_EmptyText(t *testing.T) {
	for _, set := range []*template.Set{nil, loadParserSet(t)} {
		res := Parse("", set, "auto")
		assert.Equal(t, Result{}, res)
		assert.Equal(t, 0, res.Extra.Len())
	}
}

func TestParse_TemplatePath(t *testing.T) {
	set := loadParserSet(t)
	text := "TAX INVOICE\nNo. INV-77\nDate: 05/01/2024\nPO: 123 456 789\n" +
		"Remark: <b>urgent</b><br/>deliver\nEND\n" +
		"เลขประจำตัวผู้เสียภาษี 0105551234567 สาขาที่ 2\n" +
		"Subtotal 1,000.00 VAT 70.00 Total 1,070.00"

	res := Parse(text, set, "auto")
	assert.Equal(t, "invoice", res.DocumentType)
	assert.Equal(t, "ใบกำกับภาษี/Invoice", res.DocumentTypeName)
	assert.Equal(t, "INV-77", res.DocumentNo)
	assert.Equal(t, "05/01/2024", res.Date)
	assert.Equal(t, "1,070.00", res.Amount)
	assert.Equal(t, "0105551234567", res.TaxID)
	assert.Equal(t, "00002", res.Branch)
	assert.Equal(t, []string{"po_number", "remark"}, res.Extra.Names())
	po, _ := res.Extra.Get("po_number")
	assert.Equal(t, "123456", po)
	remark, _ := res.Extra.Get("remark")
	assert.Equal(t, "urgent deliver", remark)
}

func TestParse_FallbackLastAmount(t *testing.T) {
	set := loadParserSet(t)
	res := Parse("Tax Invoice Total 1,000.00 ... Grand Total 2,500.50", set, "invoice")
	assert.Equal(t, "2,500.50", res.Amount)
}

func TestParse_NoFallbackLeavesEmpty(t *testing.T) {
	set := loadParserSet(t)
	res := Parse("Receipt Total 1,000.00", set, "auto")
	assert.Equal(t, "receipt", res.DocumentType)
	assert.Equal(t, "receipt", res.DocumentTypeName)
	assert.Equal(t, "", res.Amount)
	assert.Equal(t, 0, res.Extra.Len())
}

func TestParse_UnknownRequestedType(t *testing.T) {
	set := loadParserSet(t)
	res := Parse("Receipt Paid 10.00", set, "purchase_order")
	assert.Equal(t, "invoice", res.DocumentType)
	assert.Equal(t, "10.00", res.Amount)
}

func TestParse_UnknownTypeWithoutInvoiceTemplate(t *testing.T) {
	set := template.NewSet([]template.Template{{Code: "receipt", Name: "Receipt"}}, nil)
	res := Parse("hello 0105551234567", set, "nope")
	assert.Equal(t, "invoice", res.DocumentType)
	assert.Equal(t, "invoice", res.DocumentTypeName)
	assert.Equal(t, "", res.TaxID, "no common config means no common fields")
}

func TestParse_BasicPathEndToEnd(t *testing.T) {
	text := "บริษัท ตัวอย่าง จำกัด (สำนักงานใหญ่)\n" +
		"เลขประจำตัวผู้เสียภาษี 1234567890123\n" +
		"เลขที่ INV-001\n" +
		"วันที่ 1 มกราคม 2024\n" +
		"สาขา 12\n" +
		"GRAND TOTAL 1,500.00\n"

	res := Parse(text, nil, "auto")
	assert.Equal(t, "invoice", res.DocumentType)
	assert.Equal(t, "ใบกำกับภาษี/Invoice", res.DocumentTypeName)
	assert.Equal(t, "INV-001", res.DocumentNo)
	assert.Equal(t, "1 มกราคม 2024", res.Date)
	assert.Equal(t, "1,500.00", res.Amount)
	assert.Equal(t, "1234567890123", res.TaxID)
	assert.Equal(t, "00000", res.Branch)
}

func TestParse_BasicPathAmountFallbackAndNumericDate(t *testing.T) {
	res := Parse("วันที่: 01/02/2567\nยอด 100.00\nรวม 1,234.50\nBranch No. 3", template.NewSet(nil, nil), "")
	assert.Equal(t, "01/02/2567", res.Date)
	assert.Equal(t, "1,234.50", res.Amount)
	assert.Equal(t, "00003", res.Branch)
	assert.Equal(t, "", res.DocumentNo)
}

func TestParse_CommonFieldsOnlyUsesTemplatePath(t *testing.T) {
	set, err := template.Parse([]byte(`{"templates": {}, "common_fields": {"tax_id": {"patterns": []}}}`))
	require.NoError(t, err)
	require.True(t, set.Empty())

	text := "ใบกำกับภาษี เลขที่ INV-001 เลขประจำตัวผู้เสียภาษี 0105551234567 สาขาที่ 4 รวมเงินทั้งสิ้น 1,500.00"
	res := Parse(text, set, "auto")
	assert.Equal(t, "invoice", res.DocumentType)
	assert.Equal(t, "invoice", res.DocumentTypeName)
	assert.Equal(t, "0105551234567", res.TaxID)
	assert.Equal(t, "00004", res.Branch)
	assert.Empty(t, res.DocumentNo, "no template fields to extract")
	assert.Empty(t, res.Amount)

	basic := Parse(text, template.NewSet(nil, nil), "auto")
	assert.Equal(t, "INV-001", basic.DocumentNo)
	assert.Equal(t, "1,500.00", basic.Amount)
}

func TestParse_Idempotent(t *testing.T) {
	set := loadParserSet(t)
	text := "Tax Invoice No. A-1 PO 12 Remark: x END 0-1055-51234-56-7 Head Office 9.99"
	first, err := json.Marshal(Parse(text, set, "auto"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Parse(text, set, "auto"))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestResult_JSONKeepsExtraOrder(t *testing.T) {
	var res Result
	res.Extra.Set("zeta", "1")
	res.Extra.Set("alpha", "2")
	res.Extra.Set("zeta", "3")

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"extra_fields":{"zeta":"3","alpha":"2"}`)

	b, err = json.Marshal(Result{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"extra_fields":{}`)
}

func TestLastAmount(t *testing.T) {
	assert.Equal(t, "2,500.50", LastAmount("Total 1,000.00 ... Grand Total 2,500.50"))
	assert.Equal(t, "", LastAmount("no money"))
}
