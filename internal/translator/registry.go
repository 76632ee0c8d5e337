package translator

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/llm"
)

const (
	EngineDeepL  = "deepl"
	EngineGemini = "gemini"
	EngineOpenAI = "openai"
)

// EngineInfo describes a selectable engine for GET /api/engines.
type EngineInfo struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	Model      string `json:"model,omitempty"`
	Configured bool   `json:"configured"`
}

// NewEngine builds the engine selected by name. An empty name selects the
// configured default. Missing credentials are reported before any network I/O.
func NewEngine(name string, cfg config.Config) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToLower(cfg.Translate.DefaultEngine)
	}

	switch {
	case name == EngineDeepL:
		if cfg.DeepL.APIKey == "" {
			return nil, missingKey(name, "DEEPL_API_KEY")
		}
		return &paramEngine{
			name:       name,
			apiKey:     cfg.DeepL.APIKey,
			baseURL:    cfg.DeepL.APIURL,
			httpClient: &http.Client{Timeout: 2 * time.Minute},
		}, nil

	case name == EngineGemini || strings.HasPrefix(name, "gemini-"):
		if cfg.Gemini.APIKey == "" {
			return nil, missingKey(name, "GEMINI_API_KEY")
		}
		model := cfg.Gemini.Model
		if name != EngineGemini {
			model = name
		}
		return &generativeEngine{
			name:       name,
			apiKey:     cfg.Gemini.APIKey,
			baseURL:    cfg.Gemini.APIURL,
			model:      model,
			httpClient: &http.Client{Timeout: 2 * time.Minute},
		}, nil

	case name == EngineOpenAI || name == "chat" || strings.HasPrefix(name, "gpt-") ||
		(cfg.LLM.Model != "" && name == strings.ToLower(cfg.LLM.Model)):
		if cfg.LLM.APIKey == "" {
			return nil, missingKey(name, "OPENAI_API_KEY")
		}
		llmCfg := llm.Config{
			APIKey:      cfg.LLM.APIKey,
			APIURL:      cfg.LLM.APIURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			SiteURL:     cfg.LLM.SiteURL,
			AppName:     cfg.LLM.AppName,
		}
		if strings.HasPrefix(name, "gpt-") {
			llmCfg.Model = name
		}
		engine, err := newChatEngine(name, llmCfg)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindConfig, "invalid chat engine configuration").
				WithContext("engine", name)
		}
		return engine, nil
	}

	return nil, apperr.Newf(apperr.KindValidation, "unknown translation engine %q", name).
		WithContext("available", strings.Join(engineNames(), ","))
}

// Available lists the built-in engines and whether their credentials are set.
func Available(cfg config.Config) []EngineInfo {
	return []EngineInfo{
		{Name: EngineDeepL, Kind: KindParamTranslate, Configured: cfg.DeepL.APIKey != ""},
		{Name: EngineGemini, Kind: KindGenerative, Model: cfg.Gemini.Model, Configured: cfg.Gemini.APIKey != ""},
		{Name: EngineOpenAI, Kind: KindChat, Model: cfg.LLM.Model, Configured: cfg.LLM.APIKey != ""},
	}
}

func engineNames() []string {
	names := []string{EngineDeepL, EngineGemini, EngineOpenAI}
	sort.Strings(names)
	return names
}

func missingKey(engine, env string) error {
	return apperr.Newf(apperr.KindConfig, "missing credential for engine %s", engine).
		WithContext("env", env)
}
