package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

const paramDefaultBatchSize = 50

// paramEngine calls the DeepL /translate API with one joined text per batch.
type paramEngine struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

func (e *paramEngine) Name() string          { return e.name }
func (e *paramEngine) Kind() Kind            { return KindParamTranslate }
func (e *paramEngine) DefaultBatchSize() int { return paramDefaultBatchSize }

func (e *paramEngine) Call(ctx context.Context, req Request) (string, error) {
	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("target_lang", deeplTargetLang(req.Target))
	if source, ok := deeplSourceLang(req.Source); ok {
		form.Set("source_lang", source)
	}
	form.Set("preserve_formatting", "1")
	form.Set("split_sentences", "nonewlines")

	endpoint := strings.TrimRight(e.baseURL, "/") + "/translate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepl request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepl API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed deeplResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return extractParamText(&parsed)
}

// extractParamText reads translations[0].text.
func extractParamText(resp *deeplResponse) (string, error) {
	if len(resp.Translations) == 0 {
		if resp.Message != "" {
			return "", fmt.Errorf("deepl returned no translations: %s", resp.Message)
		}
		return "", fmt.Errorf("deepl returned no translations")
	}
	return resp.Translations[0].Text, nil
}

// deeplTargetLang maps a tag to a DeepL target code. English and Portuguese
// need a regional variant; others use the upper-cased base language.
func deeplTargetLang(tag language.Tag) string {
	base, _ := tag.Base()
	region, conf := tag.Region()
	hasRegion := conf == language.Exact

	switch base.String() {
	case "en":
		if hasRegion && region.String() == "GB" {
			return "EN-GB"
		}
		return "EN-US"
	case "pt":
		if hasRegion && region.String() == "PT" {
			return "PT-PT"
		}
		return "PT-BR"
	case "zh":
		// zh-TW and zh-HK only imply Hant
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "ZH-HANT"
		}
		return "ZH"
	}
	return strings.ToUpper(base.String())
}

// deeplSources lists the source languages DeepL accepts.
var deeplSources = map[string]bool{
	"ar": true, "bg": true, "cs": true, "da": true, "de": true, "el": true,
	"en": true, "es": true, "et": true, "fi": true, "fr": true, "hu": true,
	"id": true, "it": true, "ja": true, "ko": true, "lt": true, "lv": true,
	"nb": true, "nl": true, "pl": true, "pt": true, "ro": true, "ru": true,
	"sk": true, "sl": true, "sv": true, "tr": true, "uk": true, "zh": true,
}

// deeplSourceLang maps a detected tag to a DeepL source code. ok is false for
// unknown or unsupported languages, leaving detection to DeepL.
func deeplSourceLang(tag language.Tag) (code string, ok bool) {
	if tag == language.Und {
		return "", false
	}
	base, _ := tag.Base()
	if !deeplSources[base.String()] {
		return "", false
	}
	return strings.ToUpper(base.String()), true
}
