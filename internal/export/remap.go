package export

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

// Resolver looks up a vendor by OCR tax ID and branch.
type Resolver interface {
	Resolve(taxID, branch string) (vendor.Match, bool)
}

// RemapStats counts the outcome of a remap.
type RemapStats struct {
	Rows    int
	Matched int
}

// remapColumns locates the columns a summary edited by hand may have renamed.
type remapColumns struct {
	taxID, branch, code, name int
}

// findColumn returns the first header containing every keyword,
// case-insensitively, or -1.
func findColumn(header []string, keywords ...string) int {
	for i, h := range header {
		lower := strings.ToLower(h)
		all := true
		for _, k := range keywords {
			if !strings.Contains(lower, strings.ToLower(k)) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

func locateRemapColumns(header []string) (remapColumns, error) {
	c := remapColumns{taxID: -1}
	for _, kw := range [][]string{{"vendor", "id"}, {"vendorid"}, {"vendor", "ocr"}} {
		if c.taxID = findColumn(header, kw...); c.taxID >= 0 {
			break
		}
	}
	c.branch = findColumn(header, "branch")
	c.code = findColumn(header, "vendor", "code")
	c.name = findColumn(header, "vendor", "name")

	var missing []string
	if c.taxID < 0 {
		missing = append(missing, ColTaxID)
	}
	if c.branch < 0 {
		missing = append(missing, ColBranch)
	}
	if c.code < 0 {
		missing = append(missing, ColVendorCode)
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("summary is missing columns: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// Remap re-resolves the vendor code and name of every row in an existing
// summary from its tax ID and branch cells and saves the result to out
// (which may equal in). Rows without a match are left untouched, as are all
// other cells, formulas included. A missing vendor name column is appended.
func Remap(in, out string, r Resolver, logger *slog.Logger) (RemapStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats RemapStats

	f, err := excelize.OpenFile(in)
	if err != nil {
		return stats, fmt.Errorf("open summary: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return stats, fmt.Errorf("read summary: %w", err)
	}
	if len(rows) == 0 {
		return stats, fmt.Errorf("summary sheet %q is empty", sheet)
	}

	cols, err := locateRemapColumns(rows[0])
	if err != nil {
		return stats, err
	}
	if cols.name < 0 {
		cols.name = len(rows[0])
		cell, _ := excelize.CoordinatesToCellName(cols.name+1, 1)
		if err := f.SetCellStr(sheet, cell, ColVendorName); err != nil {
			return stats, err
		}
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		stats.Rows++
		m, ok := r.Resolve(at(row, cols.taxID), at(row, cols.branch))
		if !ok {
			continue
		}
		stats.Matched++
		codeCell, _ := excelize.CoordinatesToCellName(cols.code+1, rowNum)
		nameCell, _ := excelize.CoordinatesToCellName(cols.name+1, rowNum)
		if err := f.SetCellStr(sheet, codeCell, m.Code); err != nil {
			return stats, err
		}
		if err := f.SetCellStr(sheet, nameCell, m.Name); err != nil {
			return stats, err
		}
	}

	if err := f.SaveAs(out); err != nil {
		return stats, fmt.Errorf("save summary: %w", err)
	}
	logger.Info("export.remap.ok", "in", in, "out", out, "sheet", sheet,
		"rows", stats.Rows, "matched", stats.Matched)
	return stats, nil
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
