package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-ocr/internal/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

func TestFieldLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"po_number", "Po Number"},
		{"due_date", "Due Date"},
		{"TAX_id", "Tax Id"},
		{"vat7", "Vat7"},
		{"ref_2nd", "Ref 2Nd"},
		{"เลข_ที่", "เลข ที่"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldLabel(tt.in))
		})
	}
}

func TestHyperlinkFormula(t *testing.T) {
	got := HyperlinkFormula(`/in/a "b".pdf`, 3)
	assert.Equal(t, `HYPERLINK("/in/a ""b"".pdf","a ""b"".pdf (Page 3)")`, got)
}

func sampleRows() []Row {
	var r1 extract.Result
	r1.DocumentTypeName = "ใบกำกับภาษี/Invoice"
	r1.DocumentNo = "INV-001"
	r1.Date = "01/02/2567"
	r1.Amount = "1,070.00"
	r1.TaxID = "0105551234567"
	r1.Branch = "00000"
	r1.Extra.Set("po_number", "PO-9")

	var r2 extract.Result
	r2.DocumentTypeName = "Receipt"
	r2.TaxID = "0994000123456"
	r2.Branch = "00002"
	r2.Extra.Set("due_date", "15/02/2567")
	r2.Extra.Set("po_number", "PO-10")

	return []Row{
		{SourcePath: "/in/a.pdf", Page: 1, Result: r1, Vendor: vendor.Match{Code: "V001", Name: "ACME"}},
		{SourcePath: "/in/b.pdf", Page: 2, Result: r2},
	}
}

func TestColumns_PriorityThenExtrasInFirstSeenOrder(t *testing.T) {
	got := Columns(sampleRows(), nil)
	assert.Equal(t, []string{
		"Link PDF", "Page", "Document Type", "VendorID_OCR", "Branch_OCR",
		"Vendor code", "Vendor Name", "Document No", "Date", "Amount",
		"Po Number", "Due Date",
	}, got)
}

func TestColumns_ConfiguredOrderFirst(t *testing.T) {
	got := Columns(sampleRows(), []string{"due_date", "vat_amount", "po_number"})
	assert.Equal(t, []string{"Due Date", "Vat Amount", "Po Number"}, got[len(priorityColumns):])

	got = Columns(sampleRows(), []string{"due_date"})
	assert.Equal(t, []string{"Due Date", "Po Number"}, got[len(priorityColumns):],
		"fields missing from the configuration follow in first-seen order")
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary_ocr.xlsx")
	require.NoError(t, WriteSummary(path, sampleRows(), nil, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Po Number", rows[0][10])

	formula, err := f.GetCellFormula(SummarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, `HYPERLINK("/in/a.pdf","a.pdf (Page 1)")`, formula)

	get := func(cell string) string {
		v, err := f.GetCellValue(SummarySheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "1", get("B2"))
	assert.Equal(t, "0105551234567", get("D2"))
	assert.Equal(t, "00000", get("E2"))
	assert.Equal(t, "V001", get("F2"))
	assert.Equal(t, "ACME", get("G2"))
	assert.Equal(t, "INV-001", get("H2"))
	assert.Equal(t, "PO-9", get("K2"))
	assert.Equal(t, "", get("L2"))

	assert.Equal(t, "", get("F3"))
	assert.Equal(t, "PO-10", get("K3"))
	assert.Equal(t, "15/02/2567", get("L3"))
}

type mapResolver map[string]vendor.Match

func (m mapResolver) Resolve(taxID, branch string) (vendor.Match, bool) {
	v, ok := m[taxID+"|"+branch]
	return v, ok
}

func TestRemap_UpdatesOnlyMatchedRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "summary.xlsx")
	out := filepath.Join(dir, "remapped.xlsx")
	require.NoError(t, WriteSummary(in, sampleRows(), nil, nil))

	res := mapResolver{"0994000123456|00002": {Code: "V777", Name: "Beta Co"}}
	stats, err := Remap(in, out, res, nil)
	require.NoError(t, err)
	assert.Equal(t, RemapStats{Rows: 2, Matched: 1}, stats)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	code2, _ := f.GetCellValue(SummarySheet, "F2")
	code3, _ := f.GetCellValue(SummarySheet, "F3")
	name3, _ := f.GetCellValue(SummarySheet, "G3")
	assert.Equal(t, "V001", code2, "unmatched rows keep their values")
	assert.Equal(t, "V777", code3)
	assert.Equal(t, "Beta Co", name3)

	formula, _ := f.GetCellFormula(SummarySheet, "A3")
	assert.Equal(t, `HYPERLINK("/in/b.pdf","b.pdf (Page 2)")`, formula)
}

func TestRemap_RenamedHeadersAndMissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edited.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"VendorID", "Branch", "Vendor Code SAP", "Note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"0105551234567", "00000", "", "keep"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res := mapResolver{"0105551234567|00000": {Code: "V001", Name: "ACME"}}
	stats, err := Remap(path, path, res, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	g, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer g.Close()
	rows, err := g.GetRows(sheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"VendorID", "Branch", "Vendor Code SAP", "Note", "Vendor Name"}, rows[0])
	assert.Equal(t, []string{"0105551234567", "00000", "V001", "keep", "ACME"}, rows[1])
}

func TestRemap_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]string{"Page", "Amount"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := Remap(path, path, mapResolver{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColTaxID)
}
