// Package ocr turns PDF pages into text through a remote API or a local model.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// TextSource returns the text of one PDF page.
type TextSource interface {
	Engine() string
	ExtractPage(ctx context.Context, path string, page int) (string, error)
}

// Pinger is implemented by sources that can check their backend up front.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewSource builds the TextSource selected by cfg.Engine.
func NewSource(cfg common.OCRConfig, runner Runner, logger *slog.Logger) (TextSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Engine {
	case common.EngineTyphoon:
		return NewTyphoon(TyphoonConfig{
			URL:               cfg.TyphoonURL,
			APIKey:            cfg.TyphoonAPIKey,
			Model:             cfg.TyphoonModel,
			TaskType:          cfg.TaskType,
			MaxTokens:         cfg.MaxTokens,
			Temperature:       cfg.Temperature,
			TopP:              cfg.TopP,
			RepetitionPenalty: cfg.RepetitionPenalty,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, client, logger), nil
	case common.EngineOllama:
		return NewOllama(OllamaConfig{
			URL:          cfg.OllamaURL,
			Model:        cfg.OllamaModel,
			Prompt:       cfg.Prompt,
			DPI:          cfg.DPI,
			MaxImageSize: cfg.MaxImageSize,
			Contrast:     cfg.Contrast,
			Pdftoppm:     cfg.Renderer,
		}, client, runner, logger), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown ocr engine %q", cfg.Engine), common.ErrConfig)
	}
}
