package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/utils"
)

// TyphoonConfig configures the remote Typhoon OCR API.
type TyphoonConfig struct {
	URL               string
	APIKey            string
	Model             string
	TaskType          string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	RequestsPerMinute int // 0 = unlimited

	// The breaker opens after BreakerFailures consecutive failed requests
	// and stays open for BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Typhoon sends PDF pages to the Typhoon OCR endpoint.
type Typhoon struct {
	cfg     TyphoonConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

func NewTyphoon(cfg TyphoonConfig, client *http.Client, logger *slog.Logger) *Typhoon {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = "https://api.opentyphoon.ai/v1/ocr"
	}
	if cfg.Model == "" {
		cfg.Model = "typhoon-ocr"
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "default"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 16000
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}
	return &Typhoon{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		breaker: newBreaker(cfg, logger),
		logger:  logger,
	}
}

func newBreaker(cfg TyphoonConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	failures := uint32(cfg.BreakerFailures)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "typhoon",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// a cancelled batch says nothing about the API
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ocr.typhoon.breaker", "from", from.String(), "to", to.String())
		},
	})
}

func (t *Typhoon) Engine() string { return common.EngineTyphoon }

// ExtractPage returns the text of one page.
func (t *Typhoon) ExtractPage(ctx context.Context, path string, page int) (string, error) {
	return t.ExtractPages(ctx, path, []int{page})
}

// ExtractPages uploads the PDF and returns the text of every successful page
// joined with newlines. Failed pages are dropped.
func (t *Typhoon) ExtractPages(ctx context.Context, path string, pages []int) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, contentType, err := t.buildForm(path, pages)
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "build typhoon request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "build typhoon request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	var status int
	raw, err := t.breaker.Execute(func() ([]byte, error) {
		var (
			out []byte
			err error
		)
		out, status, err = send(t.client, req, len(body), t.logger)
		return out, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", common.NewAppError(common.CodeOCR, "typhoon temporarily disabled after repeated failures", err)
	}
	if err != nil {
		t.logger.Error("ocr.typhoon.failed",
			"path", path,
			"pages", pages,
			"status", status,
			"body", utils.Truncate(string(raw), 2<<10),
		)
		return "", common.NewAppError(common.CodeOCR, fmt.Sprintf("typhoon pages %v", pages), err)
	}
	text, err := parseTyphoonResponse(raw)
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "decode typhoon response", err)
	}
	return text, nil
}

func (t *Typhoon) buildForm(path string, pages []int) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"model", t.cfg.Model},
		{"task_type", t.cfg.TaskType},
		{"max_tokens", strconv.Itoa(t.cfg.MaxTokens)},
		{"temperature", formatFloat(t.cfg.Temperature)},
		{"top_p", formatFloat(t.cfg.TopP)},
		{"repetition_penalty", formatFloat(t.cfg.RepetitionPenalty)},
	}
	if len(pages) > 0 {
		b, err := json.Marshal(pages)
		if err != nil {
			return nil, "", err
		}
		fields = append(fields, [2]string{"pages", string(b)})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type typhoonResponse struct {
	Results []struct {
		Success bool `json:"success"`
		Message struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"message"`
	} `json:"results"`
}

// parseTyphoonResponse joins the content of successful results. Content that
// is itself a JSON object with natural_text contributes that field instead.
func parseTyphoonResponse(raw []byte) (string, error) {
	var resp typhoonResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	texts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if !r.Success || len(r.Message.Choices) == 0 {
			continue
		}
		texts = append(texts, naturalText(r.Message.Choices[0].Message.Content))
	}
	return strings.Join(texts, "\n"), nil
}

func naturalText(content string) string {
	var wrapped struct {
		NaturalText *string `json:"natural_text"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil || wrapped.NaturalText == nil {
		return content
	}
	return *wrapped.NaturalText
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
