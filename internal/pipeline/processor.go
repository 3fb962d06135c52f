// Package pipeline runs the batch: page selection, OCR, field extraction,
// vendor matching and the per-page text dumps.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/export"
	"github.com/joseph-ayodele/invoice-ocr/internal/ingest"
	"github.com/joseph-ayodele/invoice-ocr/internal/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

// Document is one source PDF.
type Document struct {
	Path string
	Hash string
}

// PageCounter returns the number of pages in a PDF.
type PageCounter func(path string) (int, error)

// Processor coordinates OCR then parsing for every selected page of a file.
type Processor struct {
	Logger     *slog.Logger
	OCR        *OCRStage
	Parse      *ParseStage
	Cache      repository.PageTextRepository // optional
	OutputDir  string
	Pages      string // page selection, e.g. "All", "1,3", "2-n"
	CountPages PageCounter
}

func NewProcessor(logger *slog.Logger, ocrStage *OCRStage, parse *ParseStage, outputDir, pages string) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:     logger,
		OCR:        ocrStage,
		Parse:      parse,
		Cache:      ocrStage.Cache,
		OutputDir:  outputDir,
		Pages:      pages,
		CountPages: ocr.PageCount,
	}
}

// Stats summarizes a batch.
type Stats struct {
	Files       int
	FilesFailed int
	Pages       int
	PagesFailed int
	CacheHits   int
	Matched     int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.FilesFailed += o.FilesFailed
	s.Pages += o.Pages
	s.PagesFailed += o.PagesFailed
	s.CacheHits += o.CacheHits
	s.Matched += o.Matched
}

// ProcessFile runs every selected page of path. A failing page is logged
// and skipped; the error return is reserved for problems with the file
// itself and for cancellation.
func (p *Processor) ProcessFile(ctx context.Context, path string, force bool) ([]export.Row, Stats, error) {
	doc := Document{Path: path}
	if p.Cache != nil {
		sum, err := ingest.HashFile(path)
		if err != nil {
			common.LoggerFrom(ctx, p.Logger).Warn("batch.file.hash_failed", "path", path, "error", err)
		}
		doc.Hash = sum
	}
	return p.processDocument(ctx, doc, force)
}

func (p *Processor) processDocument(ctx context.Context, doc Document, force bool) ([]export.Row, Stats, error) {
	stats := Stats{Files: 1}
	path := doc.Path
	logger := common.LoggerFrom(ctx, p.Logger).With("path", path)

	total, err := p.CountPages(path)
	if err != nil {
		stats.FilesFailed++
		return nil, stats, common.NewAppError(common.CodeInvalidInput, "count pages", err)
	}
	pages, err := ocr.ParsePageSelection(p.Pages, total)
	if err != nil {
		stats.FilesFailed++
		return nil, stats, err
	}
	logger.Info("batch.file.start", "total_pages", total, "selected", len(pages))

	var rows []export.Row
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return rows, stats, err
		}
		stats.Pages++

		text, cached, err := p.OCR.Run(ctx, doc, page, force)
		if cached {
			stats.CacheHits++
		}
		if err != nil {
			if ctx.Err() != nil {
				return rows, stats, ctx.Err()
			}
			stats.PagesFailed++
			logger.Warn("batch.page.skipped", "page", page, "error", err)
			continue
		}

		if err := p.writeText(path, page, text); err != nil {
			logger.Warn("batch.page.text_write_failed", "page", page, "error", err)
		}

		res, match, ok := p.Parse.Run(text)
		if ok {
			stats.Matched++
		}
		if p.Cache != nil && doc.Hash != "" {
			if err := p.Cache.MarkParsed(ctx, doc.Hash, page, p.OCR.Source.Engine(), res.DocumentType); err != nil {
				logger.Warn("batch.page.mark_failed", "page", page, "error", err)
			}
		}
		logger.Info("batch.page.ok",
			"page", page,
			"document_type", res.DocumentType,
			"tax_id", res.TaxID,
			"branch", res.Branch,
			"vendor_code", match.Code,
		)
		rows = append(rows, export.Row{SourcePath: path, Page: page, Result: res, Vendor: match})
	}
	return rows, stats, nil
}

// TextPath is where the raw text of a page is written.
func (p *Processor) TextPath(pdfPath string, page int) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(p.OutputDir, fmt.Sprintf("%s_page%d.txt", base, page))
}

func (p *Processor) writeText(pdfPath string, page int, text string) error {
	if p.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.TextPath(pdfPath, page), []byte(text), 0o644)
}

// ProcessDir runs every PDF directly inside dir in name order. Per-file
// failures are logged and counted.
func (p *Processor) ProcessDir(ctx context.Context, dir string, force bool) ([]export.Row, Stats, error) {
	var stats Stats
	logger := common.LoggerFrom(ctx, p.Logger)

	files, dirStats, err := ingest.ScanDir(dir, true)
	if err != nil {
		return nil, stats, common.NewAppError(common.CodeInvalidInput, "scan source dir", err)
	}
	logger.Info("batch.start", "dir", dir, "scanned", dirStats.Scanned, "pdfs", dirStats.Matched)

	if p.Cache != nil {
		if err := ingest.HashAll(ctx, files, 4); err != nil {
			return nil, stats, err
		}
	}

	start := time.Now()
	var rows []export.Row
	for _, f := range files {
		if f.Err != "" {
			logger.Warn("batch.file.hash_failed", "path", f.Path, "error", f.Err)
		}
		fileRows, fs, err := p.processDocument(ctx, Document{Path: f.Path, Hash: f.HashHex}, force)
		stats.add(fs)
		rows = append(rows, fileRows...)
		if err != nil {
			if ctx.Err() != nil {
				logger.Warn("batch.cancelled", "rows", len(rows))
				return rows, stats, ctx.Err()
			}
			logger.Error("batch.file.failed", "path", f.Path, "error", err)
		}
	}

	logger.Info("batch.done",
		"files", stats.Files,
		"files_failed", stats.FilesFailed,
		"pages", stats.Pages,
		"pages_failed", stats.PagesFailed,
		"cache_hits", stats.CacheHits,
		"matched", stats.Matched,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rows, stats, nil
}

// Run processes dir and writes the summary workbook into the output dir.
// No workbook is written when no page produced a row.
func (p *Processor) Run(ctx context.Context, dir, summaryName string, force bool) (string, Stats, error) {
	rows, stats, err := p.ProcessDir(ctx, dir, force)
	if err != nil {
		return "", stats, err
	}
	if len(rows) == 0 {
		p.Logger.Warn("batch.no_rows", "dir", dir)
		return "", stats, nil
	}
	if summaryName == "" {
		summaryName = constants.DefaultSummaryName
	}
	out := filepath.Join(p.OutputDir, summaryName)
	if err := export.WriteSummary(out, rows, p.fieldNames(), p.Logger); err != nil {
		return "", stats, common.NewAppError(common.CodeExport, "write summary", err)
	}
	return out, stats, nil
}

// Reprocess runs one file and replaces its rows in set, then rewrites the
// summary at summaryPath from every row set holds. A file that yields no
// rows drops its earlier rows.
func (p *Processor) Reprocess(ctx context.Context, path string, force bool, set *RowSet, summaryPath string) error {
	fileRows, _, err := p.ProcessFile(ctx, path, force)
	if err != nil {
		return err
	}
	set.Replace(path, fileRows)
	rows := set.Rows()
	if len(rows) == 0 {
		return nil
	}
	if err := export.WriteSummary(summaryPath, rows, p.fieldNames(), p.Logger); err != nil {
		return common.NewAppError(common.CodeExport, "write summary", err)
	}
	return nil
}

func (p *Processor) fieldNames() []string {
	if p.Parse == nil {
		return nil
	}
	return p.Parse.Templates.FieldNames()
}
