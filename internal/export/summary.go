package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-ocr/internal/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

const SummarySheet = "Summary"

// Summary column headers, in output order.
const (
	ColLink         = "Link PDF"
	ColPage         = "Page"
	ColDocumentType = "Document Type"
	ColTaxID        = "VendorID_OCR"
	ColBranch       = "Branch_OCR"
	ColVendorCode   = "Vendor code"
	ColVendorName   = "Vendor Name"
	ColDocumentNo   = "Document No"
	ColDate         = "Date"
	ColAmount       = "Amount"
)

var priorityColumns = []string{
	ColLink, ColPage, ColDocumentType, ColTaxID, ColBranch,
	ColVendorCode, ColVendorName, ColDocumentNo, ColDate, ColAmount,
}

// Row is one processed page.
type Row struct {
	SourcePath string
	Page       int
	Result     extract.Result
	Vendor     vendor.Match
}

// FieldLabel turns a field name into its column header: underscores become
// spaces and each word is capitalized with the rest lowercased.
func FieldLabel(name string) string {
	var b strings.Builder
	prevCased := false
	for _, r := range strings.ReplaceAll(name, "_", " ") {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && prevCased:
			b.WriteRune(unicode.ToLower(r))
		case cased:
			b.WriteRune(unicode.ToTitle(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

// Columns returns the header row for rows: the fixed columns, then the
// configured extra fields in fieldNames order, then any other extra field
// found in rows in first-seen order.
func Columns(rows []Row, fieldNames []string) []string {
	cols := append([]string(nil), priorityColumns...)
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	add := func(name string) {
		label := FieldLabel(name)
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		cols = append(cols, label)
	}
	for _, name := range fieldNames {
		add(name)
	}
	for _, r := range rows {
		for _, name := range r.Result.Extra.Names() {
			add(name)
		}
	}
	return cols
}

// HyperlinkFormula builds the link cell formula for a page of a PDF.
func HyperlinkFormula(path string, page int) string {
	display := fmt.Sprintf("%s (Page %d)", filepath.Base(path), page)
	return fmt.Sprintf(`HYPERLINK("%s","%s")`, escapeFormula(path), escapeFormula(display))
}

func escapeFormula(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func (r Row) values(cols []string) map[string]any {
	v := map[string]any{
		ColPage:         r.Page,
		ColDocumentType: r.Result.DocumentTypeName,
		ColTaxID:        r.Result.TaxID,
		ColBranch:       r.Result.Branch,
		ColVendorCode:   r.Vendor.Code,
		ColVendorName:   r.Vendor.Name,
		ColDocumentNo:   r.Result.DocumentNo,
		ColDate:         r.Result.Date,
		ColAmount:       r.Result.Amount,
	}
	for _, name := range r.Result.Extra.Names() {
		label := FieldLabel(name)
		if _, ok := v[label]; ok {
			continue
		}
		val, _ := r.Result.Extra.Get(name)
		v[label] = val
	}
	return v
}

// WriteSummary writes the summary workbook to path, replacing any existing
// file. The link column holds a HYPERLINK formula to the source PDF.
// fieldNames orders the extra columns (see Columns).
func WriteSummary(path string, rows []Row, fieldNames []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	cols := Columns(rows, fieldNames)
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SummarySheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	// text cells keep leading zeros in tax IDs and branch codes
	textCols := map[string]bool{ColTaxID: true, ColBranch: true, ColVendorCode: true}

	for ri, r := range rows {
		rowNum := ri + 2
		vals := r.values(cols)
		for ci, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(ci+1, rowNum)
			var err error
			switch {
			case col == ColLink:
				err = f.SetCellFormula(SummarySheet, cell, HyperlinkFormula(r.SourcePath, r.Page))
			case textCols[col]:
				s, _ := vals[col].(string)
				err = f.SetCellStr(SummarySheet, cell, s)
			default:
				v, ok := vals[col]
				if !ok {
					continue
				}
				err = f.SetCellValue(SummarySheet, cell, v)
			}
			if err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(SummarySheet, "A", "A", 40) // link
	_ = f.SetColWidth(SummarySheet, "B", "B", 6)  // page
	_ = f.SetColWidth(SummarySheet, "C", "C", 24) // type
	_ = f.SetColWidth(SummarySheet, "D", "F", 16) // tax id, branch, code
	_ = f.SetColWidth(SummarySheet, "G", "G", 36) // vendor name
	_ = f.SetColWidth(SummarySheet, "H", "J", 16) // doc no, date, amount

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.summary.ok",
		"path", path,
		"rows", len(rows),
		"columns", len(cols),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
