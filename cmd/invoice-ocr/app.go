package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/pipeline"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

func vendorColumns(cfg *common.Config) vendor.Columns {
	return vendor.Columns{
		TaxID:  cfg.Vendor.TaxIDColumn,
		Branch: cfg.Vendor.BranchColumn,
		Code:   cfg.Vendor.CodeColumn,
		Name:   cfg.Vendor.NameColumn,
	}
}

// loadTemplates degrades to the built-in extraction when the template
// document cannot be read.
func loadTemplates(cfg *common.Config, logger *slog.Logger) *template.Set {
	set, err := template.Load(cfg.Paths.Templates)
	if err != nil {
		logger.Warn("templates.load.failed", "path", cfg.Paths.Templates, "error", err)
		return nil
	}
	logger.Info("templates.load.ok", "path", cfg.Paths.Templates, "types", set.Codes())
	return set
}

// loadVendors returns a cache even when the first load fails so watch mode
// can pick the file up once it appears.
func loadVendors(cfg *common.Config, logger *slog.Logger) *vendor.Cache {
	cache := vendor.NewCache(cfg.Paths.VendorMaster, vendorColumns(cfg), logger)
	if err := cache.Load(false); err != nil {
		logger.Warn("vendor master unavailable, vendor codes will be blank", "error", err)
	}
	return cache
}

type app struct {
	processor *pipeline.Processor
	vendors   *vendor.Cache
	db        *sql.DB
	logger    *slog.Logger
}

func (a *app) Close() {
	repository.Close(a.db, a.logger)
}

// newApp wires the OCR source, cache, templates and vendor master into a
// batch processor.
func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, docType string) (*app, error) {
	if err := cfg.ValidateOCR(); err != nil {
		return nil, err
	}

	src, err := ocr.NewSource(cfg.OCR, ocr.ExecRunner{Logger: logger}, logger)
	if err != nil {
		return nil, err
	}
	if p, ok := src.(ocr.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return nil, common.NewAppError(common.CodeOCR, "ocr engine unreachable", err)
		}
	}

	a := &app{logger: logger}
	var cache repository.PageTextRepository
	if cfg.Paths.CacheDB != "" {
		db, err := repository.Open(ctx, cfg.Paths.CacheDB, logger)
		if err != nil {
			logger.Warn("ocr cache disabled", "path", cfg.Paths.CacheDB, "error", err)
		} else {
			a.db = db
			cache = repository.NewPageTextRepository(db, logger)
		}
	}

	a.vendors = loadVendors(cfg, logger)
	if docType == "" {
		docType = cfg.Batch.DocumentType
	}
	a.processor = pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(src, cache, logger),
		pipeline.NewParseStage(loadTemplates(cfg, logger), a.vendors, docType, logger),
		cfg.Paths.Output,
		cfg.Batch.Pages,
	)
	return a, nil
}
