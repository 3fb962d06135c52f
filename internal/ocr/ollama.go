package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// OllamaConfig configures the local vision model served by Ollama.
type OllamaConfig struct {
	URL          string // .../api/generate
	Model        string
	Prompt       string
	DPI          int
	MaxImageSize int
	Contrast     float64 // 1.0 = unchanged
	Pdftoppm     string
}

// Ollama renders each page to an image and asks a local model for its text.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
	runner Runner
	logger *slog.Logger
}

func NewOllama(cfg OllamaConfig, client *http.Client, runner Runner, logger *slog.Logger) *Ollama {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434/api/generate"
	}
	if cfg.Model == "" {
		cfg.Model = "scb10x/typhoon-ocr1.5-3b:latest"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "Extract text from image. Return clean Markdown only."
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 1280
	}
	if cfg.Contrast <= 0 {
		cfg.Contrast = 1.8
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	return &Ollama{cfg: cfg, client: client, runner: runner, logger: logger}
}

func (o *Ollama) Engine() string { return common.EngineOllama }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Images  []string        `json:"images"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict"`
}

// ExtractPage renders the page, preprocesses it and returns the model text.
func (o *Ollama) ExtractPage(ctx context.Context, path string, page int) (string, error) {
	png, cleanup, err := renderPage(ctx, o.runner, o.cfg.Pdftoppm, o.cfg.DPI, path, page)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "render page", err)
	}

	img, err := imaging.Open(png)
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "open rendered page", err)
	}
	encoded, err := encodePNG(Preprocess(img, o.cfg.Contrast, o.cfg.MaxImageSize))
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, "encode page image", err)
	}

	payload := generateRequest{
		Model:   o.cfg.Model,
		Prompt:  o.cfg.Prompt,
		Images:  []string{encoded},
		Stream:  false,
		Options: generateOptions{Temperature: 0, NumCtx: 4096, NumPredict: 1024},
	}
	raw, _, err := SendJSON(ctx, o.client, o.cfg.URL, payload, nil, o.logger)
	if err != nil {
		return "", common.NewAppError(common.CodeOCR, fmt.Sprintf("ollama page %d", page), err)
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", common.NewAppError(common.CodeOCR, "decode ollama response", err)
	}
	return CleanText(stripEcho(resp.Response)), nil
}

// stripEcho drops everything up to the last "Instructions:" marker, which
// some models echo back from their prompt template.
func stripEcho(s string) string {
	s = strings.TrimSpace(s)
	const marker = "Instructions:"
	if i := strings.LastIndex(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}

// Ping checks that the Ollama server answers on /api/tags.
func (o *Ollama) Ping(ctx context.Context) error {
	url := strings.Replace(o.cfg.URL, "/api/generate", "/api/tags", 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if _, _, err := send(o.client, req, 0, o.logger); err != nil {
		return common.NewAppError(common.CodeOCR, "ollama is not reachable at "+url, err)
	}
	return nil
}

// Preprocess boosts contrast and shrinks the image to fit maxSize on its
// longer side. contrast is a factor where 1.0 leaves the image unchanged.
func Preprocess(img image.Image, contrast float64, maxSize int) *image.NRGBA {
	pct := (contrast - 1) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < -100 {
		pct = -100
	}
	out := imaging.AdjustContrast(img, pct)
	b := out.Bounds()
	if maxSize > 0 && (b.Dx() > maxSize || b.Dy() > maxSize) {
		out = imaging.Fit(out, maxSize, maxSize, imaging.Lanczos)
	}
	return out
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
