package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Paths  PathsConfig  `mapstructure:"paths"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	Vendor VendorConfig `mapstructure:"vendor"`
	Batch  BatchConfig  `mapstructure:"batch"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	Templates    string `mapstructure:"templates"`
	VendorMaster string `mapstructure:"vendor_master"`
	Source       string `mapstructure:"source"`
	Output       string `mapstructure:"output"`
	CacheDB      string `mapstructure:"cache_db"`
}

// OCRConfig holds settings for both OCR engines.
type OCRConfig struct {
	Engine  string        `mapstructure:"engine"`
	Timeout time.Duration `mapstructure:"timeout"`

	TyphoonURL        string  `mapstructure:"typhoon_url"`
	TyphoonAPIKey     string  `mapstructure:"typhoon_api_key"`
	TyphoonModel      string  `mapstructure:"typhoon_model"`
	TaskType          string  `mapstructure:"task_type"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	TopP              float64 `mapstructure:"top_p"`
	RepetitionPenalty float64 `mapstructure:"repetition_penalty"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`

	OllamaURL    string  `mapstructure:"ollama_url"`
	OllamaModel  string  `mapstructure:"ollama_model"`
	Prompt       string  `mapstructure:"prompt"`
	DPI          int     `mapstructure:"dpi"`
	MaxImageSize int     `mapstructure:"max_image_size"`
	Contrast     float64 `mapstructure:"contrast"`
	Renderer     string  `mapstructure:"renderer"`
}

// VendorConfig names the vendor master columns.
type VendorConfig struct {
	TaxIDColumn  string `mapstructure:"tax_id_column"`
	BranchColumn string `mapstructure:"branch_column"`
	CodeColumn   string `mapstructure:"code_column"`
	NameColumn   string `mapstructure:"name_column"`
}

// BatchConfig controls which pages are read and how they are typed.
type BatchConfig struct {
	Pages        string `mapstructure:"pages"`
	DocumentType string `mapstructure:"document_type"`
	SummaryName  string `mapstructure:"summary_name"`
}

// Engines supported by the OCR layer.
const (
	EngineTyphoon = "typhoon"
	EngineOllama  = "ollama"
)

// legacyEnv maps the environment variable names used by older installs
// onto config keys.
var legacyEnv = map[string]string{
	"ocr.typhoon_api_key": "TYPHOON_API_KEY",
	"ocr.ollama_url":      "OLLAMA_API_URL",
	"ocr.ollama_model":    "OCR_MODEL_NAME",
}

// LoadConfig reads configuration from defaults, an optional config file, a
// .env file and the environment, in increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, NewAppError(CodeConfig, "failed to read .env", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		if _, err := os.Stat("invoice-ocr.yaml"); err == nil {
			configPath = "invoice-ocr.yaml"
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("failed to read config %s", configPath), err)
		}
	}

	v.SetEnvPrefix("INVOICE_OCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "INVOICE_OCR_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, NewAppError(CodeConfig, "failed to bind env", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "failed to unmarshal config", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.templates", "document_templates.json")
	v.SetDefault("paths.vendor_master", "Vendor_branch.xlsx")
	v.SetDefault("paths.source", ".")
	v.SetDefault("paths.output", "output")
	v.SetDefault("paths.cache_db", "ocr_cache.db")

	v.SetDefault("ocr.engine", EngineTyphoon)
	v.SetDefault("ocr.timeout", 300*time.Second)
	v.SetDefault("ocr.typhoon_url", "https://api.opentyphoon.ai/v1/ocr")
	v.SetDefault("ocr.typhoon_model", "typhoon-ocr")
	v.SetDefault("ocr.task_type", "default")
	v.SetDefault("ocr.max_tokens", 16000)
	v.SetDefault("ocr.temperature", 0.1)
	v.SetDefault("ocr.top_p", 0.6)
	v.SetDefault("ocr.repetition_penalty", 1.1)
	v.SetDefault("ocr.requests_per_minute", 20)
	v.SetDefault("ocr.ollama_url", "http://localhost:11434/api/generate")
	v.SetDefault("ocr.ollama_model", "scb10x/typhoon-ocr1.5-3b:latest")
	v.SetDefault("ocr.prompt", "Extract text from image. Return clean Markdown only.")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_image_size", 1280)
	v.SetDefault("ocr.contrast", 1.8)
	v.SetDefault("ocr.renderer", "pdftoppm")

	v.SetDefault("vendor.tax_id_column", "เลขประจำตัวผู้เสียภาษี")
	v.SetDefault("vendor.branch_column", "สาขา")
	v.SetDefault("vendor.code_column", "Vendor code SAP")
	v.SetDefault("vendor.name_column", "ชื่อบริษัท")

	v.SetDefault("batch.pages", "All")
	v.SetDefault("batch.document_type", "auto")
	v.SetDefault("batch.summary_name", "summary_ocr.xlsx")
}

// Validate checks the fields every command depends on. Engine-specific
// requirements are checked by ValidateOCR.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("paths.templates", c.Paths.Templates, Required).
		Field("paths.output", c.Paths.Output, Required).
		Field("batch.pages", c.Batch.Pages, Required)
	return ValidateAndReturnError(v, CodeConfig)
}

// ValidateOCR checks the settings of the selected OCR engine.
func (c *Config) ValidateOCR() error {
	v := NewValidator()
	v.Field("ocr.engine", c.OCR.Engine, OneOf(EngineTyphoon, EngineOllama)).
		Field("ocr.dpi", c.OCR.DPI, Positive).
		Field("ocr.max_image_size", c.OCR.MaxImageSize, Positive)
	switch c.OCR.Engine {
	case EngineTyphoon:
		v.Field("ocr.typhoon_api_key", c.OCR.TyphoonAPIKey, Required).
			Field("ocr.typhoon_url", c.OCR.TyphoonURL, Required)
	case EngineOllama:
		v.Field("ocr.ollama_url", c.OCR.OllamaURL, Required).
			Field("ocr.ollama_model", c.OCR.OllamaModel, Required)
	}
	return ValidateAndReturnError(v, CodeConfig)
}
