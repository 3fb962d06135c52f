package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

// OCRStage returns page text, consulting the cache before the OCR engine.
type OCRStage struct {
	Source ocr.TextSource
	Cache  repository.PageTextRepository // optional
	Logger *slog.Logger
}

func NewOCRStage(src ocr.TextSource, cache repository.PageTextRepository, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Source: src, Cache: cache, Logger: logger}
}

// Run returns the text of page and whether it came from the cache. A page
// whose OCR output is blank yields an AppError with CodeOCR.
func (s *OCRStage) Run(ctx context.Context, doc Document, page int, force bool) (string, bool, error) {
	engine := s.Source.Engine()
	logger := common.LoggerFrom(ctx, s.Logger).With("path", doc.Path, "page", page, "engine", engine)

	if s.Cache != nil && !force && doc.Hash != "" {
		pt, err := s.Cache.Get(ctx, doc.Hash, page, engine)
		switch {
		case err == nil && strings.TrimSpace(pt.Text) != "":
			logger.Debug("batch.ocr.cache_hit")
			return pt.Text, true, nil
		case err != nil && !errors.Is(err, common.ErrNotFound):
			logger.Warn("batch.ocr.cache_error", "error", err)
		}
	}

	start := time.Now()
	text, err := s.Source.ExtractPage(ctx, doc.Path, page)
	if err == nil && strings.TrimSpace(text) == "" {
		err = common.NewAppError(common.CodeOCR, "no text returned", common.ErrOCR)
	}
	if err != nil {
		s.markFailed(ctx, doc, page, engine, err, logger)
		return "", false, common.NewAppError(common.CodeOCR, fmt.Sprintf("ocr page %d", page), err)
	}
	logger.Info("batch.ocr.ok", "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())

	if s.Cache != nil && doc.Hash != "" {
		if err := s.Cache.SaveText(ctx, doc.Hash, page, engine, doc.Path, text); err != nil {
			logger.Warn("batch.ocr.cache_save_failed", "error", err)
		}
	}
	return text, false, nil
}

func (s *OCRStage) markFailed(ctx context.Context, doc Document, page int, engine string, cause error, logger *slog.Logger) {
	if s.Cache == nil || doc.Hash == "" || ctx.Err() != nil {
		return
	}
	if err := s.Cache.MarkFailed(ctx, doc.Hash, page, engine, doc.Path, cause); err != nil {
		logger.Warn("batch.ocr.cache_save_failed", "error", err)
	}
}
