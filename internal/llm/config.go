package llm

import (
	"errors"
	"net/http"
	"strings"
)

// Config holds the configuration of an OpenAI-compatible chat completions
// endpoint (OpenAI, OpenRouter, local gateways).
type Config struct {
	APIKey      string  `json:"-"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	// Timeout is the HTTP client timeout in seconds.
	Timeout int    `json:"timeout"`
	SiteURL string `json:"site_url"`
	AppName string `json:"app_name"`
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("API key is required"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("API URL is required"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.MaxTokens < 1 {
		errs = append(errs, errors.New("max tokens must be greater than 0"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, errors.New("temperature must be between 0 and 2"))
	}
	if c.Timeout < 1 {
		errs = append(errs, errors.New("timeout must be greater than 0"))
	}
	return errors.Join(errs...)
}

// setHeaders adds authentication and the optional OpenRouter attribution
// headers to h.
func (c *Config) setHeaders(h http.Header) {
	h.Set("Authorization", "Bearer "+c.APIKey)
	h.Set("Content-Type", "application/json")
	if c.SiteURL != "" {
		h.Set("HTTP-Referer", c.SiteURL)
	}
	if c.AppName != "" {
		h.Set("X-Title", c.AppName)
	}
}

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
