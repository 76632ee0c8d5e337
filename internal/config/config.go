package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/structured-doc-translator/pkg/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
//
// Environment Variables:
// Chat engine (OpenAI-compatible):
// - OPENAI_API_KEY or LLM_API_KEY: API key (required only when a chat engine is selected)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model name (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: HTTP client timeout in seconds (default: 120)
// - LLM_SITE_URL / LLM_APP_NAME: optional OpenRouter attribution headers
//
// Generative engine (Gemini):
// - GEMINI_API_KEY, GEMINI_API_URL, GEMINI_MODEL (default: gemini-1.5-flash)
//
// Parameter engine (DeepL):
// - DEEPL_API_KEY, DEEPL_API_URL (default: https://api-free.deepl.com/v2)
//
// Translation:
// - TRANSLATE_DEFAULT_ENGINE: engine used when a request names none (default: deepl)
// - TRANSLATE_BATCH_SIZE: blocks per backend call, 0 uses the engine default
// - TRANSLATE_BATCH_DELAY: minimum spacing between backend calls (default: 1s)
// - TRANSLATE_CALL_TIMEOUT: timeout of a single backend call (default: 60s)
// - TRANSLATE_LANGUAGE_CONCURRENCY: target languages processed at once (default: 1)
//
// HTTP:
// - HTTP_ADDR (default: :8080), HTTP_MAX_UPLOAD_MB (default: 10),
// - HTTP_CORS_ORIGINS: comma separated (default: *)
//
// Inbox (watch folder, disabled when INBOX_DIR is empty):
// - INBOX_DIR, OUTBOX_DIR, INBOX_CRON (default: */5 * * * *),
// - INBOX_TARGET_LANGUAGES: comma separated, INBOX_ENGINE, INBOX_WORKERS (default: 1)
//
// Logging:
// - LOG_LEVEL (default: info), LOG_FILE (optional)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Gemini    GeminiConfig    `json:"gemini"`
	DeepL     DeepLConfig     `json:"deepl"`
	Translate TranslateConfig `json:"translate"`
	HTTP      HTTPConfig      `json:"http"`
	Inbox     InboxConfig     `json:"inbox"`
	Log       LogConfig       `json:"log"`
}

// LLMConfig configures the OpenAI-compatible chat engine.
type LLMConfig struct {
	APIKey      string  `json:"-"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

type GeminiConfig struct {
	APIKey string `json:"-"`
	APIURL string `json:"api_url"`
	Model  string `json:"model"`
}

type DeepLConfig struct {
	APIKey string `json:"-"`
	APIURL string `json:"api_url"`
}

type TranslateConfig struct {
	DefaultEngine       string        `json:"default_engine"`
	BatchSize           int           `json:"batch_size"`
	BatchDelay          time.Duration `json:"batch_delay"`
	CallTimeout         time.Duration `json:"call_timeout"`
	LanguageConcurrency int           `json:"language_concurrency"`
}

type HTTPConfig struct {
	Addr        string   `json:"addr"`
	MaxUploadMB int      `json:"max_upload_mb"`
	CORSOrigins []string `json:"cors_origins"`
}

// MaxUploadBytes returns the multipart upload limit in bytes.
func (c HTTPConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

type InboxConfig struct {
	Dir             string         `json:"dir"`
	OutDir          string         `json:"out_dir"`
	CronExpr        string         `json:"cron_expr"`
	TargetLanguages []language.Tag `json:"target_languages"`
	Engine          string         `json:"engine"`
	Workers         int            `json:"workers"`
}

func (c InboxConfig) Enabled() bool {
	return c.Dir != ""
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithInboxDir overrides the inbox and outbox directories.
func WithInboxDir(inbox, outbox string) Option {
	return func(c *Config) {
		c.Inbox.Dir = inbox
		c.Inbox.OutDir = outbox
	}
}

// WithHTTPAddr overrides the HTTP listen address.
func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		c.HTTP.Addr = addr
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are ignored and existing variables are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	inboxLangs, err := parseLanguages(getEnvString("INBOX_TARGET_LANGUAGES", ""))
	if err != nil {
		return nil, fmt.Errorf("INBOX_TARGET_LANGUAGES: %w", err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("OPENAI_API_KEY", getEnvString("LLM_API_KEY", "")),
			APIURL:      getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnvString("GEMINI_API_KEY", ""),
			APIURL: getEnvString("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:  getEnvString("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		DeepL: DeepLConfig{
			APIKey: getEnvString("DEEPL_API_KEY", ""),
			APIURL: getEnvString("DEEPL_API_URL", "https://api-free.deepl.com/v2"),
		},
		Translate: TranslateConfig{
			DefaultEngine:       getEnvString("TRANSLATE_DEFAULT_ENGINE", "deepl"),
			BatchSize:           getEnvInt("TRANSLATE_BATCH_SIZE", 0),
			BatchDelay:          getEnvDuration("TRANSLATE_BATCH_DELAY", time.Second),
			CallTimeout:         getEnvDuration("TRANSLATE_CALL_TIMEOUT", time.Minute),
			LanguageConcurrency: getEnvInt("TRANSLATE_LANGUAGE_CONCURRENCY", 1),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			MaxUploadMB: getEnvInt("HTTP_MAX_UPLOAD_MB", 10),
			CORSOrigins: splitList(getEnvString("HTTP_CORS_ORIGINS", "*")),
		},
		Inbox: InboxConfig{
			Dir:             getEnvString("INBOX_DIR", ""),
			OutDir:          getEnvString("OUTBOX_DIR", ""),
			CronExpr:        getEnvString("INBOX_CRON", "*/5 * * * *"),
			TargetLanguages: inboxLangs,
			Engine:          getEnvString("INBOX_ENGINE", ""),
			Workers:         getEnvInt("INBOX_WORKERS", 1),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info("Config: %s", config)
	return config, nil
}

// String renders the configuration without credentials.
func (c *Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(data)
}

// validate checks if all required configuration is properly set.
// Credentials are checked when an engine is built, not here.
func (c *Config) validate() error {
	if c.Translate.BatchDelay < 0 {
		return fmt.Errorf("TRANSLATE_BATCH_DELAY must not be negative")
	}
	if c.Translate.CallTimeout <= 0 {
		return fmt.Errorf("TRANSLATE_CALL_TIMEOUT must be positive")
	}
	if c.Translate.BatchSize < 0 {
		return fmt.Errorf("TRANSLATE_BATCH_SIZE must not be negative")
	}
	if c.Translate.LanguageConcurrency < 1 {
		return fmt.Errorf("TRANSLATE_LANGUAGE_CONCURRENCY must be at least 1")
	}
	if c.HTTP.MaxUploadMB < 1 {
		return fmt.Errorf("HTTP_MAX_UPLOAD_MB must be at least 1")
	}

	if !c.Inbox.Enabled() {
		return nil
	}
	if c.Inbox.OutDir == "" {
		return fmt.Errorf("OUTBOX_DIR is required when INBOX_DIR is set")
	}
	if len(c.Inbox.TargetLanguages) == 0 {
		return fmt.Errorf("INBOX_TARGET_LANGUAGES is required when INBOX_DIR is set")
	}
	if c.Inbox.Workers < 1 {
		return fmt.Errorf("INBOX_WORKERS must be at least 1")
	}
	if _, err := cron.ParseStandard(c.Inbox.CronExpr); err != nil {
		return fmt.Errorf("invalid INBOX_CRON %q: %w", c.Inbox.CronExpr, err)
	}
	return nil
}

func parseLanguages(s string) ([]language.Tag, error) {
	var ret []language.Tag
	for _, item := range splitList(s) {
		tag, err := language.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", item, err)
		}
		ret = append(ret, tag)
	}
	return ret, nil
}

func splitList(s string) []string {
	var ret []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1500ms") and plain seconds ("2").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
