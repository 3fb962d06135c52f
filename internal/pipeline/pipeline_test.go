package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-ocr/internal/export"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

const templatesJSON = `{
  "templates": {
    "invoice": {
      "name": "ใบกำกับภาษี/Invoice",
      "detect_keywords": ["ใบกำกับภาษี"],
      "fields": {
        "document_no": {"patterns": ["เลขที่\\s*([A-Z0-9-]+)"]},
        "amount": {"patterns": ["รวมทั้งสิ้น\\s*([\\d,]+\\.\\d{2})"], "fallback": "last_amount"},
        "po_number": {"patterns": ["PO\\s*:?\\s*(\\d+)"]}
      }
    }
  },
  "common_fields": {"tax_id": {"patterns": []}, "branch": {"patterns": []}}
}`

type fakeSource struct {
	mu    sync.Mutex
	pages map[string]string // "<base>#<page>" -> text
	errs  map[string]error
	calls int
}

func (f *fakeSource) Engine() string { return "fake" }

func (f *fakeSource) ExtractPage(_ context.Context, path string, page int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := fmt.Sprintf("%s#%d", filepath.Base(path), page)
	if err := f.errs[key]; err != nil {
		return "", err
	}
	return f.pages[key], nil
}

type mapResolver map[string]vendor.Match

func (m mapResolver) Resolve(taxID, branch string) (vendor.Match, bool) {
	v, ok := m[taxID+"|"+branch]
	return v, ok
}

func setup(t *testing.T, src *fakeSource, withCache bool) (*Processor, string, string) {
	t.Helper()
	set, err := template.Parse([]byte(templatesJSON))
	require.NoError(t, err)

	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(in, 0o755))
	for _, name := range []string{"a.pdf", "b.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte("%PDF "+name), 0o644))
	}

	var cache repository.PageTextRepository
	if withCache {
		db, err := repository.Open(context.Background(), filepath.Join(root, "cache.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { repository.Close(db, nil) })
		cache = repository.NewPageTextRepository(db, nil)
	}

	vendors := mapResolver{"0105551234567|00000": {Code: "V001", Name: "ACME"}}
	p := NewProcessor(nil,
		NewOCRStage(src, cache, nil),
		NewParseStage(set, vendors, "auto", nil),
		out, "All")
	p.CountPages = func(path string) (int, error) {
		if filepath.Base(path) == "a.pdf" {
			return 2, nil
		}
		return 1, nil
	}
	return p, in, out
}

func newSource() *fakeSource {
	return &fakeSource{
		pages: map[string]string{
			"a.pdf#1": "ใบกำกับภาษี\nเลขที่ INV-001\nเลขประจำตัวผู้เสียภาษี 0105551234567 สำนักงานใหญ่\nPO: 42\nรวมทั้งสิ้น 1,070.00",
			"a.pdf#2": "   ",
			"b.pdf#1": "ใบกำกับภาษี เลขที่ B-7 สาขาที่ 2 0994000123456 ยอด 500.00",
		},
		errs: map[string]error{},
	}
}

func TestProcessor_RunWritesTextAndSummary(t *testing.T) {
	src := newSource()
	p, in, out := setup(t, src, false)

	summary, stats, err := p.Run(context.Background(), in, "", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "summary_ocr.xlsx"), summary)
	assert.Equal(t, Stats{Files: 2, Pages: 3, PagesFailed: 1, Matched: 1}, stats)

	txt, err := os.ReadFile(filepath.Join(out, "a_page1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "INV-001")
	_, err = os.Stat(filepath.Join(out, "a_page2.txt"))
	assert.True(t, os.IsNotExist(err), "blank pages are skipped")

	f, err := excelize.OpenFile(summary)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"", "1", "ใบกำกับภาษี/Invoice", "0105551234567", "00000", "V001", "ACME",
		"INV-001", "", "1,070.00", "42",
	}, rows[1])
	assert.Equal(t, "0994000123456", rows[2][3])
	assert.Equal(t, "00002", rows[2][4])
	assert.Equal(t, "B-7", rows[2][7])
	assert.Equal(t, "500.00", rows[2][9])
}

func TestProcessor_PageFailureIsSkipped(t *testing.T) {
	src := newSource()
	src.errs["a.pdf#1"] = errors.New("upstream 502")
	p, in, _ := setup(t, src, false)

	rows, stats, err := p.ProcessDir(context.Background(), in, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b.pdf", filepath.Base(rows[0].SourcePath))
	assert.Equal(t, 2, stats.PagesFailed)
}

func TestProcessor_CacheSkipsSecondOCR(t *testing.T) {
	src := newSource()
	p, in, _ := setup(t, src, true)
	ctx := context.Background()

	_, first, err := p.ProcessDir(ctx, in, false)
	require.NoError(t, err)
	callsAfterFirst := src.calls
	assert.Equal(t, 3, callsAfterFirst)
	assert.Equal(t, 0, first.CacheHits)

	rows, second, err := p.ProcessDir(ctx, in, false)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, second.CacheHits)
	// the blank page was never cached and is asked for again
	assert.Equal(t, callsAfterFirst+1, src.calls)

	_, _, err = p.ProcessDir(ctx, in, true)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst+1+3, src.calls)
}

func TestProcessor_PageSelectionAndCancellation(t *testing.T) {
	src := newSource()
	p, in, _ := setup(t, src, false)

	p.Pages = "2-n"
	rows, stats, err := p.ProcessFile(context.Background(), filepath.Join(in, "a.pdf"), false)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Pages)

	p.Pages = "x-"
	_, _, err = p.ProcessFile(context.Background(), filepath.Join(in, "a.pdf"), false)
	assert.Error(t, err)

	p.Pages = "All"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.ProcessDir(ctx, in, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_NoRowsNoSummary(t *testing.T) {
	src := &fakeSource{pages: map[string]string{}, errs: map[string]error{}}
	p, in, out := setup(t, src, false)

	summary, _, err := p.Run(context.Background(), in, "x.xlsx", false)
	require.NoError(t, err)
	assert.Empty(t, summary)
	_, err = os.Stat(filepath.Join(out, "x.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestTextPath(t *testing.T) {
	p := &Processor{OutputDir: "/out"}
	assert.Equal(t, filepath.Join("/out", "Inv 01_page3.txt"), p.TextPath("/in/Inv 01.pdf", 3))
}

func TestProcessor_ReprocessReplacesRows(t *testing.T) {
	src := newSource()
	p, in, out := setup(t, src, false)
	ctx := context.Background()
	set := NewRowSet()
	summary := filepath.Join(out, "watch.xlsx")
	a := filepath.Join(in, "a.pdf")

	require.NoError(t, p.Reprocess(ctx, a, false, set, summary))
	require.NoError(t, p.Reprocess(ctx, filepath.Join(in, "b.pdf"), false, set, summary))
	src.pages["a.pdf#1"] = "ใบกำกับภาษี\nเลขที่ INV-002\n0105551234567 สำนักงานใหญ่\nรวมทั้งสิ้น 2,140.00"
	require.NoError(t, p.Reprocess(ctx, a, false, set, summary))

	got := set.Rows()
	require.Len(t, got, 2)
	assert.Equal(t, "INV-002", got[0].Result.DocumentNo)
	assert.Equal(t, "b.pdf", filepath.Base(got[1].SourcePath))

	f, err := excelize.OpenFile(summary)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "INV-002", rows[1][7])
	assert.Equal(t, "B-7", rows[2][7])

	// a rewrite with no text drops the file's rows
	src.pages["a.pdf#1"] = ""
	require.NoError(t, p.Reprocess(ctx, a, false, set, summary))
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, "b.pdf", filepath.Base(set.Rows()[0].SourcePath))
}

func TestRowSet_ReplaceKeepsFirstSeenOrder(t *testing.T) {
	set := NewRowSet()
	set.Replace("/in/a.pdf", []export.Row{{SourcePath: "/in/a.pdf", Page: 1}, {SourcePath: "/in/a.pdf", Page: 2}})
	set.Replace("/in/b.pdf", []export.Row{{SourcePath: "/in/b.pdf", Page: 1}})
	set.Replace("/in/./a.pdf", []export.Row{{SourcePath: "/in/a.pdf", Page: 3}})

	rows := set.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].Page)
	assert.Equal(t, "/in/b.pdf", rows[1].SourcePath)

	set.Replace("/in/missing.pdf", nil)
	assert.Equal(t, 2, set.Len())
}
